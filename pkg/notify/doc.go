// Package notify forwards remediation outcomes to a webhook and to an
// apprise relay. Each endpoint is optional, gets a single JSON POST per
// remediation and is never retried.
package notify
