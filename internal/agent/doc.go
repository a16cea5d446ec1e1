// Package agent contains seochat's core (non-UI) logic.
//
// It resolves the model/provider configuration, discovers the SEO tool
// servers, prepares the request, and starts a streaming completion.
package agent
