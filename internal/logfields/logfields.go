package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID     = "run_id"
	KeySubmodule = "submodule"
	KeyPath      = "path"
	KeyBranch    = "branch"
	KeyUpstream  = "upstream"
	KeyURL       = "url"
	KeyStep      = "step"
	KeyProvider  = "provider"
	KeyAhead     = "ahead"
	KeyError     = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr    { return slog.String(KeyRunID, id) }
func Submodule(n string) slog.Attr { return slog.String(KeySubmodule, n) }
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }
func Branch(b string) slog.Attr    { return slog.String(KeyBranch, b) }
func Upstream(u string) slog.Attr  { return slog.String(KeyUpstream, u) }
func URL(u string) slog.Attr       { return slog.String(KeyURL, u) }
func Step(s string) slog.Attr      { return slog.String(KeyStep, s) }
func Provider(p string) slog.Attr  { return slog.String(KeyProvider, p) }
func Ahead(n int) slog.Attr        { return slog.Int(KeyAhead, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
