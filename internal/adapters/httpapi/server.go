package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Overland-East-Bay/cashcard-api/internal/app/cashcards"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server holds the cash card HTTP handlers.
type Server struct {
	Cards *cashcards.Service
	Idem  idempotency.Store

	log *slog.Logger
}

func NewServer(cardsSvc *cashcards.Service, idem idempotency.Store) *Server {
	return NewServerWithLogger(cardsSvc, idem, nil)
}

func NewServerWithLogger(cardsSvc *cashcards.Service, idem idempotency.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Cards: cardsSvc,
		Idem:  idem,
		log:   logger,
	}
}

func (s *Server) CreateCashCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := PrincipalFromContext(ctx)
	if !ok {
		unauthorized(w, r, "Basic "+authRealm, "missing principal")
		return
	}
	body, ok := decodeCashCardRequest(w, r)
	if !ok {
		return
	}

	// Idempotency handling:
	// - Replay if same principal+key+route+bodyHash
	// - Reject if same principal+key+route with different bodyHash (409)
	// - Reject while the first request with the key is still creating (409)
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var respFP idempotency.Fingerprint
	if s.Idem != nil && idemKey != "" {
		bodyHash, err := hashCashCardBody(body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		reqFP := idempotency.Fingerprint{
			Key:      idempotency.Key(idemKey),
			Subject:  caller.ID,
			Method:   http.MethodPost,
			Route:    "/cashcards",
			BodyHash: bodyHash,
		}
		replayed, ok := s.claimIdempotencyKey(w, r, reqFP)
		if !ok || replayed {
			return
		}
		respFP = reqFP
	}

	created, err := s.Cards.Create(ctx, caller, cashcards.CreateInput{
		Amount:  body.Amount,
		Ignored: body.ignoredFields(),
	})
	if err != nil {
		if respFP.BodyHash != "" {
			s.releaseIdempotencyKey(ctx, respFP.Claim())
		}
		s.writeServiceError(w, r, err)
		return
	}

	location := "/cashcards/" + created.ID.String()
	if respFP.BodyHash != "" {
		if err := s.Idem.Put(ctx, respFP, idempotency.Record{
			StatusCode: http.StatusCreated,
			Location:   location,
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			s.log.WarnContext(ctx, "store idempotency record", slog.Any("error", err))
		}
	}

	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) GetCashCard(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "Basic "+authRealm, "missing principal")
		return
	}
	id, err := bindCashCardID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	c, err := s.Cards.Get(r.Context(), caller, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cashCardFromDomain(c))
}

func (s *Server) ListCashCards(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "Basic "+authRealm, "missing principal")
		return
	}
	in, err := bindListParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	cards, err := s.Cards.List(r.Context(), caller, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]CashCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cashCardFromDomain(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) UpdateCashCard(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "Basic "+authRealm, "missing principal")
		return
	}
	id, err := bindCashCardID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	body, ok := decodeCashCardRequest(w, r)
	if !ok {
		return
	}
	err = s.Cards.Update(r.Context(), caller, id, cashcards.UpdateInput{
		Amount:  body.Amount,
		Ignored: body.ignoredFields(),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) DeleteCashCard(w http.ResponseWriter, r *http.Request) {
	caller, ok := PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "Basic "+authRealm, "missing principal")
		return
	}
	id, err := bindCashCardID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := s.Cards.Delete(r.Context(), caller, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// claimIdempotencyKey atomically records the body hash of reqFP against its key on first use.
// A reuse with another body is rejected with 409, a repeat of a completed create replays its
// 201, and a repeat while the first request is still running gets 409. ok is false when a
// response has been written.
func (s *Server) claimIdempotencyKey(w http.ResponseWriter, r *http.Request, reqFP idempotency.Fingerprint) (replayed bool, ok bool) {
	ctx := r.Context()
	held, stored, err := s.Idem.PutIfAbsent(ctx, reqFP.Claim(), idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(reqFP.BodyHash),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return false, false
	}
	if stored {
		return false, true
	}
	if string(held.Body) != reqFP.BodyHash {
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
		return false, false
	}

	rec, found, err := s.Idem.Get(ctx, reqFP)
	if err != nil {
		s.writeServiceError(w, r, err)
		return false, false
	}
	if found && rec.StatusCode == http.StatusCreated && rec.Location != "" {
		w.Header().Set("Location", rec.Location)
		w.WriteHeader(http.StatusCreated)
		return true, false
	}
	writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_IN_PROGRESS", "a request with this idempotency key is still in progress", nil)
	return false, false
}

// releaseIdempotencyKey drops a claim whose create failed so the client can retry the key.
func (s *Server) releaseIdempotencyKey(ctx context.Context, claim idempotency.Fingerprint) {
	if err := s.Idem.Delete(context.WithoutCancel(ctx), claim); err != nil {
		s.log.WarnContext(ctx, "release idempotency key", slog.Any("error", err))
	}
}

// decodeCashCardRequest writes a 400 and returns false when the body is unusable.
func decodeCashCardRequest(w http.ResponseWriter, r *http.Request) (CashCardRequest, bool) {
	var body CashCardRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		msg := "malformed JSON body"
		if errors.Is(err, io.EOF) {
			msg = "missing request body"
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
		return CashCardRequest{}, false
	}
	if dec.More() {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "unexpected data after JSON body", nil)
		return CashCardRequest{}, false
	}
	if err := validate.Struct(body); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", details)
		return CashCardRequest{}, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// hashCashCardBody fingerprints the fields that affect the outcome. Discarded fields are
// excluded and amounts are compared by value.
func hashCashCardBody(b CashCardRequest) (string, error) {
	canon := struct {
		Amount string `json:"amount"`
	}{}
	if b.Amount != nil {
		canon.Amount = b.Amount.String()
	}
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
