package services

import (
	"context"
	"time"

	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Deps are the collaborators shared by the trade ledger and the negotiation channel
type Deps struct {
	DB        *gorm.DB
	Catalog   ItemCatalog
	Identity  IdentityDirectory
	Locker    Locker
	Publisher EventPublisher
	Policy    TransitionPolicy
	Media     *MediaResolver
	LockWait  time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Catalog == nil {
		d.Catalog = NewItemCatalog(d.DB)
	}
	if d.Identity == nil {
		d.Identity = NewUserDirectory(d.DB)
	}
	if d.Locker == nil {
		d.Locker = NewLocalLocker()
	}
	if d.Publisher == nil {
		d.Publisher = NoopPublisher{}
	}
	if d.Policy == nil {
		d.Policy = PermissivePolicy{}
	}
	if d.Media == nil {
		d.Media = NewMediaResolver(nil, "")
	}
	return d
}

var tracer = otel.Tracer("github.com/kendall-kelly/barter-api/services")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records the outcome of operation on span and in metrics
func endSpan(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		observability.RecordCall(operation, string(KindOf(err)))
	} else {
		observability.RecordCall(operation, "ok")
	}
	span.End()
}

func (d Deps) itemView(ctx context.Context, item models.Item, full bool) models.ItemView {
	return d.Media.ItemView(ctx, item, full)
}

func (d Deps) userView(ctx context.Context, user models.User, withEmail bool) models.UserView {
	return d.Media.UserView(ctx, user, withEmail)
}
