package constant

import "fmt"

const (
	OrderEventsStreamName       = "order_events"
	OrderEventsStreamSubjectAll = "order_events.>"

	OrderEventsSubjectCreated   = "order_events.created"
	OrderEventsSubjectFilled    = "order_events.filled"
	OrderEventsSubjectCancelled = "order_events.cancelled"
	OrderEventsSubjectFailure   = "order_events.failure"
	OrderEventsSubjectCompleted = "order_events.completed"

	OrderEventsQueueGroup   = "order_events_group"
	OrderEventsConsumerName = "order_events_recorder"
)

func GetOrderEventsSubject(eventType string) string {
	return fmt.Sprintf("%s.%s", OrderEventsStreamName, eventType)
}
