// Package workflow defines the data model, error taxonomy and collaborator interfaces shared by
// the two event-triggered workflows, and implements their orchestrators: Notifier
// (verify-and-notify) and Archiver (scrape-and-archive).
package workflow
