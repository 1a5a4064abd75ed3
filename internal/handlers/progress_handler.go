package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"alfredoptarigan/cv-matcher/internal/progress"
)

type ProgressHandler struct {
	tracker *progress.Tracker
}

func NewProgressHandler(tracker *progress.Tracker) *ProgressHandler {
	return &ProgressHandler{tracker: tracker}
}

// HandleStream handles GET /progress/:id as a server-sent event stream.
// Each frame is one progress event; the stream ends after the terminal
// event (completed: true) or when the client disconnects.
func (h *ProgressHandler) HandleStream(c *fiber.Ctx) error {
	analysisID := c.Params("id")

	events, cancel, ok := h.tracker.Subscribe(analysisID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No progress found for this analysis",
		})
	}

	// Snapshot after subscribing: a pipeline reaching its terminal state in
	// between shows up here, so the stream still carries a completed frame
	// instead of just a closed channel.
	snapshot, ok := h.tracker.Snapshot(analysisID)
	if !ok {
		cancel()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No progress found for this analysis",
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		// First frame: where the pipeline currently is, so late subscribers
		// don't wait for the next transition. A stream opened after the
		// pipeline already finished gets that single frame and ends.
		initial := progress.Event{
			CurrentStep: snapshot.CurrentStep,
			Percentage:  snapshot.Percentage,
			Message:     snapshot.CurrentStep.Name,
			Completed:   snapshot.Terminal,
			Timestamp:   time.Now().UnixMilli(),
		}
		if err := writeEventFrame(w, initial); err != nil {
			return
		}
		if snapshot.Terminal {
			return
		}

		heartbeat := time.NewTicker(15 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case event, open := <-events:
				if !open {
					return
				}
				if err := writeEventFrame(w, event); err != nil {
					return
				}
				if event.Completed {
					return
				}
			case <-heartbeat.C:
				// Comment frame keeps proxies from closing an idle stream.
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

// HandleSnapshot handles GET /progress/:id/snapshot for polling clients.
func (h *ProgressHandler) HandleSnapshot(c *fiber.Ctx) error {
	snapshot, ok := h.tracker.Snapshot(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No progress found for this analysis",
		})
	}

	return c.JSON(fiber.Map{
		"currentStep": snapshot.CurrentStep,
		"percentage":  snapshot.Percentage,
		"terminal":    snapshot.Terminal,
		"elapsedMs":   snapshot.Elapsed.Milliseconds(),
	})
}

func writeEventFrame(w *bufio.Writer, event progress.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
