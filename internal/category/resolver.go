package category

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spendtrail/spendtrail/internal/model"
)

// DefaultTimeout bounds a single labeler call.
const DefaultTimeout = 5 * time.Second

// Resolver turns labeler replies into a model.Category. It never fails:
// errors, timeouts and replies outside the label set all become Other.
type Resolver struct {
	labeler Labeler
	timeout time.Duration
	log     zerolog.Logger
}

// NewResolver creates a Resolver. A non-positive timeout uses DefaultTimeout.
func NewResolver(labeler Labeler, timeout time.Duration, log zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{labeler: labeler, timeout: timeout, log: log}
}

// Resolve labels one transaction.
func (r *Resolver) Resolve(ctx context.Context, description string, amount decimal.Decimal) model.Category {
	if r.labeler == nil {
		return model.CategoryOther
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.labeler.Label(ctx, description, amount)
	if err != nil {
		r.log.Debug().Err(err).Str("description", description).Msg("categorize failed, using Other")
		return model.CategoryOther
	}

	cat, ok := model.ParseCategory(strings.TrimSpace(reply))
	if !ok {
		r.log.Debug().Str("description", description).Str("reply", reply).Msg("label not in set, using Other")
		return model.CategoryOther
	}
	return cat
}
