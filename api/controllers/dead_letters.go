package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/orderflow/api/responses"
	"github.com/angelmondragon/orderflow/api/validators"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/pagination"
)

// DeadLetterLister pages through the dead-letter ledger.
type DeadLetterLister interface {
	List(ctx context.Context, limit, offset int) ([]models.OutboxDeadLetter, int64, error)
}

// ListDeadLetters pages through outbox records that exhausted their retries.
func ListDeadLetters(repo DeadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter repository unavailable"))
			return
		}
		page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size, err := validators.ParseQueryInt(r, "size", pagination.DefaultSize, 1, pagination.MaxSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Page: page, Size: size}

		rows, total, err := repo.List(r.Context(), params.Limit(), params.Offset())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		responses.WriteSuccess(w, pagination.NewPage(rows, params, total))
	}
}
