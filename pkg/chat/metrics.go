package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	conversationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_conversations_created_total",
			Help: "Conversations created, by kind.",
		},
		[]string{"kind"},
	)
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_messages_sent_total",
			Help: "Messages sent, by type.",
		},
		[]string{"type"},
	)
	messagesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parley_messages_deleted_total",
		Help: "Messages tombstoned by their sender.",
	})
	reactionsToggled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_reactions_toggled_total",
			Help: "Reaction toggles, by resulting state.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(conversationsCreated, messagesSent, messagesDeleted, reactionsToggled)
}
