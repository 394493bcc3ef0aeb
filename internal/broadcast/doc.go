// Package broadcast delivers progress events and mail requests over NATS.
//
// Publisher sends JSON payloads to per-user progress channels; Mailer
// queues templated mails on a subject a mail worker consumes. Rendering
// and delivering the mail is up to that worker.
package broadcast
