package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates another slog.Handler with the collection and operation
// attributes carried on the context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if cd, ok := ctx.Value(collectionDataKey{}).(*CollectionData); ok {
		r.AddAttrs(slog.Group("coll",
			slog.String("name", cd.Name),
			slog.String("kind", cd.Kind),
			slog.Bool("anonymous", cd.Anonymous),
		))
	}

	if od, ok := ctx.Value(operationDataKey{}).(*OperationData); ok {
		r.AddAttrs(slog.Group("op",
			slog.String("name", od.Name),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type collectionDataKey struct{}

type CollectionData struct {
	Name      string
	Kind      string
	Anonymous bool
}

func WithCollection(ctx context.Context, data *CollectionData) context.Context {
	return context.WithValue(ctx, collectionDataKey{}, data)
}

type operationDataKey struct{}

type OperationData struct {
	Name string
}

func WithOperation(ctx context.Context, data *OperationData) context.Context {
	return context.WithValue(ctx, operationDataKey{}, data)
}
