package banner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"parley/pkg/config"
)

const banner = `
██████╗  █████╗ ██████╗ ██╗     ███████╗██╗   ██╗
██╔══██╗██╔══██╗██╔══██╗██║     ██╔════╝╚██╗ ██╔╝
██████╔╝███████║██████╔╝██║     █████╗   ╚████╔╝
██╔═══╝ ██╔══██║██╔══██╗██║     ██╔══╝    ╚██╔╝
██║     ██║  ██║██║  ██║███████╗███████╗   ██║
╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝
`

// PrintWithEff prints the banner using an EffectiveConfigResult which
// provides richer context (config, addr, dbpath, source).
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	if eff.Config == nil {
		return
	}
	cfg := eff.Config

	fmt.Println("\n== Production? =================================================")
	keys := []struct {
		name, hint string
		n          int
	}{
		{"Backend", "required for backend services", len(cfg.Security.APIKeys.Backend)},
		{"Frontend", "required for client access", len(cfg.Security.APIKeys.Frontend)},
		{"Admin", "required for admin tooling", len(cfg.Security.APIKeys.Admin)},
	}
	for _, k := range keys {
		if k.n > 0 {
			fmt.Printf("- %s API keys: OK (%d)\n", k.name, k.n)
		} else {
			fmt.Printf("- %s API keys: MISSING (%s)\n", k.name, k.hint)
		}
	}

	if cfg.Security.JWT.Secret != "" {
		fmt.Println("- JWT identities: enabled")
	} else {
		fmt.Println("- JWT identities: disabled (signed user ids only)")
	}

	fmt.Printf("- Uploads: %s (max %s)\n", cfg.Blobs.Dir, humanize.IBytes(uint64(cfg.Blobs.MaxSize.Int64())))

	if cfg.Checkpoint.Enabled {
		fmt.Printf("- Checkpoints: enabled (cron=%s, keep=%d)\n", cfg.Checkpoint.Cron, cfg.Checkpoint.Keep)
	} else {
		fmt.Println("- Checkpoints: disabled")
	}

	if cfg.Server.TLS.CertFile != "" {
		fmt.Println("- TLS: enabled")
	} else {
		fmt.Println("- TLS: disabled")
	}
}
