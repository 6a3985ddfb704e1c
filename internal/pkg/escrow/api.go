package escrow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/identity"
	"github.com/vreid/dareme/internal/pkg/ledger"
)

func (s *EscrowService) Routes(e *echo.Echo) {
	apiGroup := e.Group("/api")

	daresGroup := apiGroup.Group("/dares")

	daresGroup.GET("", s.GetDares)
	daresGroup.POST("", s.PostDare)
	daresGroup.GET("/trending", s.GetTrending)
	daresGroup.GET("/:challenger/:id", s.GetDare)
	daresGroup.POST("/:challenger/:id/accept", s.PostAccept)
	daresGroup.POST("/:challenger/:id/proof", s.PostProof)
	daresGroup.POST("/:challenger/:id/approve", s.PostApprove)
	daresGroup.POST("/:challenger/:id/reject", s.PostReject)
	daresGroup.POST("/:challenger/:id/cancel", s.PostCancel)
	daresGroup.POST("/:challenger/:id/refuse", s.PostRefuse)
	daresGroup.POST("/:challenger/:id/expire", s.PostExpire)

	apiGroup.GET("/users/:user/stats", s.GetUserStats)
	apiGroup.GET("/accounts/:account/balance", s.GetBalance)
}

func (s *EscrowService) PostDare(c echo.Context) error {
	caller, err := common.CallerOf(c)
	if err != nil {
		return err
	}

	var req CreateDareRequest

	err = c.Bind(&req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	descriptionHash := req.DescriptionHash
	if req.Description != "" {
		computed := dare.HashOf([]byte(req.Description))
		if !descriptionHash.IsZero() && descriptionHash != computed {
			return echo.NewHTTPError(http.StatusBadRequest, "description does not match description_hash")
		}

		descriptionHash = computed
	}

	view, err := s.CreateDare(caller, dare.CreateParams{
		DareID:          req.DareID,
		DescriptionHash: descriptionHash,
		Amount:          req.Amount,
		Deadline:        req.Deadline,
		DareType:        req.DareType,
		WinnerSelection: req.WinnerSelection,
		TargetDaree:     req.TargetDaree,
	})
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusCreated, view)
}

func (s *EscrowService) GetDare(c echo.Context) error {
	ref, err := refOf(c)
	if err != nil {
		return err
	}

	view, err := s.LoadDare(ref)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, view)
}

//nolint:cyclop
func (s *EscrowService) GetDares(c echo.Context) error {
	var f Filter

	if raw := c.QueryParam("status"); raw != "" {
		var status dare.Status

		err := status.UnmarshalText([]byte(raw))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}

		f.Status = &status
	}

	if raw := c.QueryParam("type"); raw != "" {
		var dareType dare.DareType

		err := dareType.UnmarshalText([]byte(raw))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid dare type")
		}

		f.DareType = &dareType
	}

	var err error

	f.Challenger, err = optionalKey(c.QueryParam("challenger"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid challenger")
	}

	f.Daree, err = optionalKey(c.QueryParam("daree"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid daree")
	}

	switch sort := Sort(c.QueryParam("sort")); sort {
	case "", SortNewest, SortAmount, SortDeadline:
		f.Sort = sort
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	f.Page, err = optionalInt(c.QueryParam("page"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	}

	f.Limit, err = optionalInt(c.QueryParam("limit"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	feed, err := s.ListDares(f)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, feed)
}

func (s *EscrowService) GetTrending(c echo.Context) error {
	limit, err := optionalInt(c.QueryParam("limit"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	dares, err := s.Trending(limit)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, dares)
}

func (s *EscrowService) PostAccept(c echo.Context) error {
	return s.callerTransition(c, s.AcceptDare)
}

func (s *EscrowService) PostProof(c echo.Context) error {
	var req SubmitProofRequest

	return s.bodyTransition(c, &req, func(caller identity.Key, ref DareRef) (*DareView, error) {
		return s.SubmitProof(caller, ref, req.ProofHash)
	})
}

func (s *EscrowService) PostApprove(c echo.Context) error {
	var req ApproveRequest

	return s.bodyTransition(c, &req, func(caller identity.Key, ref DareRef) (*DareView, error) {
		return s.ApproveDare(caller, ref, req.Daree)
	})
}

func (s *EscrowService) PostReject(c echo.Context) error {
	return s.callerTransition(c, s.RejectDare)
}

func (s *EscrowService) PostCancel(c echo.Context) error {
	return s.callerTransition(c, s.CancelDare)
}

func (s *EscrowService) PostRefuse(c echo.Context) error {
	return s.callerTransition(c, s.RefuseDare)
}

func (s *EscrowService) PostExpire(c echo.Context) error {
	var req ExpireRequest

	return s.bodyTransition(c, &req, func(caller identity.Key, ref DareRef) (*DareView, error) {
		return s.ExpireDare(caller, ref, req.Recipient)
	})
}

func (s *EscrowService) GetUserStats(c echo.Context) error {
	user, err := identity.Parse(c.Param("user"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user")
	}

	stats, err := s.LoadStats(user)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, stats)
}

func (s *EscrowService) GetBalance(c echo.Context) error {
	account, err := identity.Parse(c.Param("account"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account")
	}

	balance, err := s.Balance(account)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, BalanceResponse{Account: account, Balance: balance})
}

func (s *EscrowService) callerTransition(
	c echo.Context,
	fn func(caller identity.Key, ref DareRef) (*DareView, error)) error {
	caller, err := common.CallerOf(c)
	if err != nil {
		return err
	}

	ref, err := refOf(c)
	if err != nil {
		return err
	}

	view, err := fn(caller, ref)
	if err != nil {
		return httpError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, view)
}

func (s *EscrowService) bodyTransition(
	c echo.Context,
	body any,
	fn func(caller identity.Key, ref DareRef) (*DareView, error)) error {
	err := c.Bind(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	return s.callerTransition(c, fn)
}

func refOf(c echo.Context) (DareRef, error) {
	challenger, err := identity.Parse(c.Param("challenger"))
	if err != nil {
		return DareRef{}, echo.NewHTTPError(http.StatusBadRequest, "invalid challenger")
	}

	dareID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return DareRef{}, echo.NewHTTPError(http.StatusBadRequest, "invalid dare id")
	}

	return DareRef{Challenger: challenger, DareID: dareID}, nil
}

func optionalKey(raw string) (identity.Key, error) {
	if raw == "" {
		return identity.Zero, nil
	}

	//nolint:wrapcheck
	return identity.Parse(raw)
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	//nolint:wrapcheck
	return strconv.Atoi(raw)
}

// httpError keeps the named rejection reason in the response body.
func httpError(err error) *echo.HTTPError {
	var rejection *dare.Error
	if errors.As(err, &rejection) {
		return echo.NewHTTPError(statusOf(rejection.Kind), ErrorBody{
			Code:    rejection.Code,
			Message: rejection.Message,
		}).SetInternal(err)
	}

	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, ErrDareNotFound), errors.Is(err, ErrStatsNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, ErrDareExists):
		status, code = http.StatusConflict, "dare_exists"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, ledger.ErrBalanceOverflow):
		status, code = http.StatusUnprocessableEntity, "balance_overflow"
	case errors.Is(err, dare.ErrInvalidEncoding):
		status, code = http.StatusBadRequest, "invalid_encoding"
	}

	message := http.StatusText(status)
	if status != http.StatusInternalServerError {
		message = err.Error()
	}

	return echo.NewHTTPError(status, ErrorBody{Code: code, Message: message}).SetInternal(err)
}

func statusOf(kind dare.Kind) int {
	switch kind {
	case dare.KindValidation:
		return http.StatusBadRequest
	case dare.KindState:
		return http.StatusConflict
	case dare.KindAuthorization:
		return http.StatusForbidden
	case dare.KindDomainMismatch, dare.KindArithmetic:
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}
