package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/Overland-East-Bay/cashcard-api/internal/app/cashcards"
	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

func bindCashCardID(r *http.Request) (domain.CashCardID, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return 0, fmt.Errorf("invalid format for parameter id: %w", err)
	}
	return domain.CashCardID(id), nil
}

func bindListParams(r *http.Request) (cashcards.ListInput, error) {
	var (
		in   cashcards.ListInput
		sort *[]string
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &in.Page); err != nil {
		return cashcards.ListInput{}, fmt.Errorf("invalid format for parameter page: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "size", q, &in.Size); err != nil {
		return cashcards.ListInput{}, fmt.Errorf("invalid format for parameter size: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "sort", q, &sort); err != nil {
		return cashcards.ListInput{}, fmt.Errorf("invalid format for parameter sort: %w", err)
	}
	if sort != nil {
		in.Sort = *sort
	}
	return in, nil
}
