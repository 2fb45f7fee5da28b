package frontend

import (
	"fmt"
	"mime"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"parley/pkg/api/router"
	"parley/pkg/api/utils"
	"parley/pkg/errs"
)

// UploadBlob stores the raw request body. The file name travels in X-File-Name.
func (h *Handlers) UploadBlob(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "upload_blob")
	defer tr.Finish()

	if caller == "" {
		router.WriteError(ctx, errs.Unauth("api.upload_blob"))
		return
	}
	body := ctx.PostBody()
	if int64(len(body)) > h.blobs.MaxSize() {
		router.WriteJSONError(ctx, fasthttp.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %s limit", humanize.IBytes(uint64(h.blobs.MaxSize()))))
		return
	}
	tr.Mark("store")
	b, err := h.blobs.Upload(utils.GetHeader(ctx, "X-File-Name"), string(ctx.Request.Header.ContentType()), body)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusCreated)
	_ = router.WriteJSON(ctx, b)
}

// DownloadBlob streams the stored bytes. ?download=1 asks for an attachment.
func (h *Handlers) DownloadBlob(ctx *fasthttp.RequestCtx) {
	_, tr := begin(ctx, "download_blob")
	defer tr.Finish()

	handle, valid := pathParamOrFail(ctx, "handle")
	if !valid {
		return
	}
	b, rc, err := h.blobs.Open(handle)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	ct := b.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	disposition := "inline"
	if utils.GetQueryBool(ctx, "download", false) {
		disposition = "attachment"
	}
	ctx.Response.Header.Set("Content-Type", ct)
	ctx.Response.Header.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": b.Name}))
	// fasthttp closes the stream once the body is written
	ctx.SetBodyStream(rc, int(b.Size))
}

func (h *Handlers) GetBlobURL(ctx *fasthttp.RequestCtx) {
	_, tr := begin(ctx, "get_blob_url")
	defer tr.Finish()

	handle, valid := pathParamOrFail(ctx, "handle")
	if !valid {
		return
	}
	url, found, err := h.blobs.URL(handle)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	resp := FileURLResponse{}
	if found {
		resp.URL = &url
	}
	_ = router.WriteJSON(ctx, resp)
}
