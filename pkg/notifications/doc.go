// Package notifications is a multi-channel notification delivery engine.
//
// A Dispatcher takes a Request, asks the preference Gate whether the
// recipient accepts it on the requested channel, and then either rejects it,
// defers it to the end of the recipient's quiet hours by writing a queue
// entry, or hands it to the channel's Sender right away. Deferred and failed
// deliveries are retried explicitly through Retry, or in bulk through
// RetryDue; nothing is retried implicitly.
//
// Persistence is expressed by four small store interfaces (PreferenceStore,
// NotificationStore, TemplateStore, QueueStore). In-memory implementations
// live in this package; PostgreSQL and Redis backed ones live in the pgstore
// and rediscache subpackages. Channel senders live in the channels
// subpackage.
//
// # Usage
//
//	stores := notifications.NewMemoryStores()
//	senders, err := channels.NewSenders(transportCfg)
//	if err != nil {
//	    return err
//	}
//	d := notifications.NewDispatcher(stores, senders,
//	    notifications.WithLogger(log),
//	    notifications.WithSendTimeout(5*time.Second),
//	)
//
//	out, err := d.Dispatch(ctx, notifications.Request{
//	    UserID:  "user-1",
//	    Channel: notifications.ChannelEmail,
//	    Title:   "Welcome",
//	    Body:    "Thanks for joining",
//	})
//
// Dispatch returns an error only for invalid requests and store failures.
// Delivery failures are part of the Outcome.
package notifications
