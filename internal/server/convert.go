// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pdiddy/docconvert/internal/workspace"
	"github.com/pdiddy/docconvert/pkg/types"
)

const (
	msgInvalidConversion = "Invalid conversion type"
	msgConversionFailed  = "conversion failed"
)

// handleConvert accepts a multipart form with a "file" part and a
// "conversion" field, converts the file in a scoped workspace and returns
// the result as an attachment.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		plainError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.inflight != nil {
		if !s.inflight.TryAcquire(1) {
			w.Header().Set("Retry-After", "1")
			plainError(w, "too many conversions in progress", http.StatusTooManyRequests)
			return
		}
		defer s.inflight.Release(1)
	}

	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	rid := RequestIDFromContext(r.Context())
	log := s.log.With("rid", rid)

	start := time.Now()
	entry := types.HistoryEntry{
		RequestID: rid,
		Outcome:   types.OutcomeRejected,
		StartedAt: start.UTC(),
	}
	defer func() {
		entry.Duration = time.Since(start)
		s.metrics.conversions.WithLabelValues(conversionLabel(entry.Conversion), string(entry.Outcome)).Inc()
		// The client may be gone; the journal entry is still written.
		if err := s.history.Record(context.WithoutCancel(r.Context()), entry); err != nil {
			log.Error("recording history", "err", err)
		}
	}()

	fail := func(msg string, err error) {
		entry.Outcome = types.OutcomeFailed
		entry.Error = err.Error()
		log.Error(msg, "conversion", string(entry.Conversion), "file", entry.InputName, "err", err)
		plainError(w, msgConversionFailed, http.StatusInternalServerError)
	}

	ws, err := workspace.Acquire(s.cfg.WorkRoot)
	if err != nil {
		fail("acquiring workspace", err)
		return
	}
	defer func() {
		if err := ws.Release(); err != nil {
			log.Error("releasing workspace", "err", err)
		}
	}()

	up, err := readUpload(r, ws, fieldConversion)
	if err != nil {
		code, msg := uploadStatus(err)
		if msg == "" {
			fail("storing upload", err)
			return
		}
		entry.Error = err.Error()
		log.Info("rejected upload", "status", code, "err", err)
		plainError(w, msg, code)
		return
	}
	if up.name == "" {
		entry.Error = "missing file"
		plainError(w, "missing file", http.StatusBadRequest)
		return
	}
	entry.InputName, entry.InputBytes = up.name, up.size
	s.metrics.uploadBytes.Observe(float64(up.size))

	kind, err := types.ParseConversion(up.fields[fieldConversion])
	if err != nil {
		entry.Error = err.Error()
		log.Info("rejected conversion", "file", up.name, "err", err)
		plainError(w, msgInvalidConversion, http.StatusBadRequest)
		return
	}
	entry.Conversion = kind

	s.metrics.inflight.Inc()
	convStart := time.Now()
	res, err := s.conv.Convert(r.Context(), kind, ws.Dir(), up.name)
	s.metrics.duration.WithLabelValues(string(kind)).Observe(time.Since(convStart).Seconds())
	s.metrics.inflight.Dec()
	if err != nil {
		fail("conversion failed", err)
		return
	}
	entry.OutputName = res.Name

	n, err := sendAttachment(w, res.Path, res.Name, res.ContentType)
	if err != nil {
		if errors.Is(err, errNoOutput) {
			fail("sending output", err)
			return
		}
		// Headers are out; only the journal and the log see this.
		entry.Outcome = types.OutcomeFailed
		entry.Error = err.Error()
		log.Warn("writing response", "file", res.Name, "bytes", n, "err", err)
		return
	}

	entry.Outcome = types.OutcomeSucceeded
	entry.OutputBytes = n
	log.Info("converted",
		"conversion", string(kind),
		"input", up.name,
		"output", res.Name,
		"in_bytes", up.size,
		"out_bytes", n,
		"ms", time.Since(convStart).Milliseconds(),
	)
}

func conversionLabel(c types.Conversion) string {
	if c == "" {
		return "invalid"
	}
	return string(c)
}
