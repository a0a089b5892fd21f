// Command example-service is a minimal Echo-based HTTP service demonstrating
// how to wire the trace, capture, and db primitives into a handler, and how
// the per-request simcontext.Context is threaded through middleware.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evalgo/simreplay/internal/capture"
	"github.com/evalgo/simreplay/internal/dbproxy"
	"github.com/evalgo/simreplay/internal/envconfig"
	"github.com/evalgo/simreplay/internal/simcontext"
	"github.com/evalgo/simreplay/internal/sink"
	"github.com/evalgo/simreplay/internal/trace"
)

func main() {
	env := envconfig.Load()
	if err := env.Validate(); err != nil {
		log.Fatalf("invalid SIM_* configuration: %v", err)
	}

	sc := simcontext.New(simcontext.Options{
		Mode:      simcontext.ParseMode(env.Mode),
		RunID:     env.RunID,
		StoreRoot: env.StubDir,
	})
	if sc.IsActive() && sc.Store != nil {
		s := sink.New(sink.Config{
			BufferBytes:   env.BufferSizeBytes(),
			FlushInterval: env.FlushInterval(),
			Store:         sc.Store,
			Metrics:       sink.NewMetrics("simreplay", "example_service"),
		})
		defer s.Close()
		sc.Sink = s
	}

	var closeDB func() error
	var db dbproxy.Querier
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pq, err := openPQQuerier(dsn)
		if err != nil {
			log.Fatalf("example: %v", err)
		}
		db, closeDB = pq, pq.Close
	} else {
		db, closeDB = &inMemoryDB{orders: map[string]float64{"order-1": 21.78, "order-2": 9.5}}, func() error { return nil }
	}
	defer closeDB()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(simMiddleware(sc))

	e.GET("/health", handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/v1/example", handleExample(db))

	addr := ":8080"
	log.Printf("example-service listening on %s (mode=%s)", addr, sc.Mode)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// simMiddleware gives every inbound request its own simcontext.Context,
// built from the service-wide sc (same mode, run id, store and sink) with a
// fresh request scope, and stamps the identifiers it assigned back onto the
// response, so a caller recording a session can correlate its own logs with
// the fixtures this request produced.
func simMiddleware(sc *simcontext.Context) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqSC := simcontext.New(simcontext.Options{
				Mode:      sc.Mode,
				RunID:     sc.RunID,
				StoreRoot: sc.StoreRoot,
				Sink:      sc.Sink,
			})
			reqSC.StartNewRequest()
			ctx := simcontext.WithContext(c.Request().Context(), reqSC)
			c.SetRequest(c.Request().WithContext(ctx))

			c.Response().Header().Set("X-Sim-Run-Id", reqSC.RunID)
			c.Response().Header().Set("X-Sim-Request-Id", reqSC.RequestID)

			return next(c)
		}
	}
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// handleExample demonstrates a trace boundary wrapping a capture and a
// simulated database read, the shape a real endpoint's handler would take.
func handleExample(db dbproxy.Querier) echo.HandlerFunc {
	return func(c echo.Context) error {
		proxy := dbproxy.Wrap(c.Request().Context(), "primary", db)
		orderID := c.QueryParam("order_id")
		if orderID == "" {
			orderID = "order-1"
		}

		out, err := trace.Call(c.Request().Context(), "fetchOrderSummary", map[string]interface{}{"order_id": orderID},
			func() (map[string]interface{}, error) {
				return fetchOrderSummary(c.Request().Context(), proxy, orderID)
			})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, out)
	}
}

func fetchOrderSummary(ctx context.Context, proxy *dbproxy.Proxy, orderID string) (map[string]interface{}, error) {
	handle, done, err := capture.Enter(ctx, "generated_at")
	if err != nil {
		return nil, err
	}
	defer done()

	var generatedAt string
	if handle.Replaying {
		generatedAt, _ = handle.Result.(string)
	} else {
		generatedAt = time.Now().UTC().Format(time.RFC3339)
		handle.SetResult(generatedAt)
	}

	rows, err := proxy.Query(ctx, "SELECT total FROM orders WHERE id = $1", orderID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	if r, ok := rows.([]map[string]interface{}); ok && len(r) > 0 {
		total, _ = r[0]["total"].(float64)
	}

	return map[string]interface{}{
		"order_id":     orderID,
		"total":        total,
		"generated_at": generatedAt,
		"jitter":       rand.Intn(1000),
	}, nil
}

// inMemoryDB is a toy dbproxy.Querier standing in for a real driver in this
// demonstration service.
type inMemoryDB struct {
	orders map[string]float64
}

func (d *inMemoryDB) Query(ctx context.Context, sql string, params ...interface{}) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("example: query requires an order id parameter")
	}
	id, _ := params[0].(string)
	total, ok := d.orders[id]
	if !ok {
		return []map[string]interface{}{}, nil
	}
	return []map[string]interface{}{{"total": total}}, nil
}

func (d *inMemoryDB) Execute(ctx context.Context, sql string, params ...interface{}) (interface{}, error) {
	return nil, fmt.Errorf("example: write operations are not supported by this demonstration database")
}
