package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	perr "syncfabric/internal/platform/errors"
	pnet "syncfabric/internal/platform/net"
	"syncfabric/internal/services/products"
)

func conflictIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "conflictID"), 10, 64)
	if err != nil || id < 1 {
		return 0, perr.InvalidArgf("conflict id must be a positive integer")
	}
	return id, nil
}

func (d Deps) listConflicts(r *http.Request) (any, error) {
	return d.Conflicts.List(r.Context(), r.URL.Query().Get("status"))
}

func (d Deps) conflictDetail(r *http.Request) (any, error) {
	id, err := conflictIDParam(r)
	if err != nil {
		return nil, err
	}
	return d.Conflicts.Get(r.Context(), id)
}

// conflictDetailPublic serves the emailed deep link: the signed token in ?t=
// stands in for a session and is only valid for this one conflict
func (d Deps) conflictDetailPublic(r *http.Request) (any, error) {
	id, err := conflictIDParam(r)
	if err != nil {
		return nil, err
	}
	tokenID, err := d.Tokens.VerifyConflictToken(r.URL.Query().Get("t"))
	if err != nil {
		return nil, err
	}
	if tokenID != id {
		return nil, perr.Forbiddenf("token not valid for this conflict")
	}
	return d.Conflicts.Get(r.Context(), id)
}

func (d Deps) resolveConflict(r *http.Request) (any, error) {
	id, err := conflictIDParam(r)
	if err != nil {
		return nil, err
	}
	winner, err := tagParam(r, "winner_db")
	if err != nil {
		return nil, err
	}
	applied, err := d.Conflicts.Resolve(r.Context(), id, winner, pnet.UserID(r.Context()))
	if err != nil {
		return nil, err
	}
	return map[string]any{"resolved": id, "winner_db": string(winner), "applied_row": applied}, nil
}

func (d Deps) resolveConflictCustom(r *http.Request, override map[string]any) (any, error) {
	id, err := conflictIDParam(r)
	if err != nil {
		return nil, err
	}
	if len(override) == 0 {
		return nil, perr.InvalidArgf("custom resolution needs at least one column value")
	}
	applied, err := d.Conflicts.ResolveCustom(r.Context(), id, override, pnet.UserID(r.Context()))
	if err != nil {
		return nil, err
	}
	return map[string]any{"resolved": id, "winner_db": "custom", "applied_row": applied}, nil
}

func (d Deps) upsertProduct(r *http.Request, in products.Input) (any, error) {
	tag, err := tagParam(r, "db")
	if err != nil {
		return nil, err
	}
	pid, err := d.Products.Upsert(r.Context(), tag, in)
	if err != nil {
		return nil, err
	}
	return map[string]any{"product_id": pid, "written_db": string(tag)}, nil
}
