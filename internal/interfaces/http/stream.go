package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
)

// streamHeartbeat intervalo del comentario keep-alive; una escritura fallida detecta la desconexión.
const streamHeartbeat = 15 * time.Second

// streamSnapshots emite cada snapshot como evento SSE "snapshot" renderizado por render.
// open recibe el contexto del stream, no el de la petición (que termina al retornar el handler).
// La suscripción se cancela al cortarse la conexión.
func streamSnapshots[T any](c *fiber.Ctx, open func(ctx context.Context) (*realtime.Subscription[T], error), render func([]T) any) error {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := open(ctx)
	if err != nil {
		cancel()
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Cancel()

		tick := time.NewTicker(streamHeartbeat)
		defer tick.Stop()
		for {
			select {
			case snap, ok := <-sub.C():
				if !ok {
					return
				}
				if err := writeEvent(w, "snapshot", render(snap)); err != nil {
					return
				}
			case <-tick.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
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

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("stream: serializar snapshot")
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
