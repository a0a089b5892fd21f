// Package dbproxy implements the transparent record/replay proxy over any
// connection exposing Query/Execute. It never imports a specific SQL
// driver: the proxy is a thin wrapper over a Querier interface, the same
// dependency-injection idiom the rest of this module uses at its storage
// boundaries.
package dbproxy

import (
	"context"
	"time"

	"github.com/evalgo/simreplay/internal/canon"
	"github.com/evalgo/simreplay/internal/fixture"
	"github.com/evalgo/simreplay/internal/simcontext"
)

// Querier is the minimal surface a database connection must expose to be
// proxied: a query that returns rows, and an execute that performs a
// write/DDL statement. Any driver-specific client can be adapted to this
// interface without the proxy ever importing the driver.
type Querier interface {
	Query(ctx context.Context, sql string, params ...interface{}) (interface{}, error)
	Execute(ctx context.Context, sql string, params ...interface{}) (interface{}, error)
}

// Proxy wraps a Querier, intercepting Query/Execute while forwarding
// everything else transparently (there is nothing else to forward in Go,
// since the interface is the full surface exposed to callers).
type Proxy struct {
	name  string // connection label, used in fixtures and WriteBlocked
	inner Querier
	sc    *simcontext.Context
}

// Wrap returns a Proxy over inner, labeled name, scoped to the
// simreplay Context bound to ctx. In off mode the returned Proxy adds no
// interception and is usable exactly like inner.
func Wrap(ctx context.Context, name string, inner Querier) *Proxy {
	return &Proxy{name: name, inner: inner, sc: simcontext.FromContext(ctx)}
}

// Query runs a read statement under the record/replay contract.
func (p *Proxy) Query(ctx context.Context, sql string, params ...interface{}) (interface{}, error) {
	return p.call(ctx, sql, params, p.inner.Query)
}

// Execute runs a write/DDL statement under the record/replay contract.
// In replay mode a write statement always returns WriteBlocked, never a
// best-effort no-op.
func (p *Proxy) Execute(ctx context.Context, sql string, params ...interface{}) (interface{}, error) {
	return p.call(ctx, sql, params, p.inner.Execute)
}

type dbCall func(ctx context.Context, sql string, params ...interface{}) (interface{}, error)

func (p *Proxy) call(ctx context.Context, sql string, params []interface{}, underlying dbCall) (interface{}, error) {
	if !p.sc.IsActive() {
		return underlying(ctx, sql, params...)
	}

	sqlFP, err := canon.Fingerprint(canon.NormalizeSQL(sql))
	if err != nil {
		return nil, err
	}
	paramsFP, err := canon.Fingerprint(params)
	if err != nil {
		return nil, err
	}

	key := simcontext.OrdinalKeyForDB(p.name, fp16(sqlFP), fp16(paramsFP))
	ordinal := p.sc.NextOrdinal(key)

	if p.sc.IsReplaying() {
		return p.replay(sql, sqlFP, paramsFP, ordinal)
	}
	return p.record(ctx, sql, params, sqlFP, paramsFP, ordinal, underlying)
}

func (p *Proxy) record(ctx context.Context, sql string, params []interface{}, sqlFP, paramsFP string, ordinal int, underlying dbCall) (interface{}, error) {
	rows, err := underlying(ctx, sql, params...)
	if err != nil {
		return nil, err
	}

	ev := &fixture.DBEvent{
		Name:              p.name,
		SQL:               sql,
		Params:            params,
		Rows:              rows,
		SQLFingerprint:    sqlFP,
		ParamsFingerprint: paramsFP,
		Ordinal:           ordinal,
		RecordedAt:        time.Now().UTC(),
	}
	emit(p.sc, fixture.Event{DB: ev})

	p.sc.PushStub(fixture.Stub{
		Type:              fixture.KindDB,
		Name:              p.name,
		Ordinal:           ordinal,
		Output:            rows,
		Source:            fixture.SourceRecord,
		SQL:               sql,
		SQLFingerprint:    sqlFP,
		ParamsFingerprint: paramsFP,
	})
	return rows, nil
}

func (p *Proxy) replay(sql, sqlFP, paramsFP string, ordinal int) (interface{}, error) {
	if isWrite(sql) {
		return nil, &WriteBlocked{SQL: truncateSQL(sql, 120), Label: p.name}
	}

	var ev fixture.DBEvent
	path := fixture.DBPath(p.name, sqlFP, paramsFP, ordinal)
	if p.sc.Store == nil {
		return nil, &simcontext.StubMiss{Qualname: "db:" + p.name, Fingerprint: sqlFP, Ordinal: ordinal}
	}
	if err := p.sc.Store.ReadJSON(path, &ev); err != nil {
		return nil, &simcontext.StubMiss{
			Qualname:    "db:" + p.name,
			Fingerprint: sqlFP,
			Ordinal:     ordinal,
			ExpectedAt:  p.sc.Store.AbsPath(path),
		}
	}

	p.sc.PushStub(fixture.Stub{
		Type:              fixture.KindDB,
		Name:              p.name,
		Ordinal:           ordinal,
		Output:            ev.Rows,
		Source:            fixture.SourceReplay,
		SQL:               sql,
		SQLFingerprint:    sqlFP,
		ParamsFingerprint: paramsFP,
	})
	return ev.Rows, nil
}

func fp16(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}

func emit(sc *simcontext.Context, ev fixture.Event) {
	if sc.Sink != nil {
		sc.Sink.Emit(ev)
		return
	}
	if sc.Store != nil && ev.DB != nil {
		path := fixture.DBPath(ev.DB.Name, ev.DB.SQLFingerprint, ev.DB.ParamsFingerprint, ev.DB.Ordinal)
		_ = sc.Store.WriteJSON(path, ev.DB)
	}
}
