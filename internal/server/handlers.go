package server

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mmynk/splitpay/internal/approval"
	"github.com/mmynk/splitpay/internal/models"
)

type tokenRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	token, err := s.clients.Authenticate(req.ClientID, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type legJSON struct {
	Participant string `json:"participant"`
	Amount      uint64 `json:"amount"`
}

type createSplitRequest struct {
	Payer    string    `json:"payer"`
	Token    string    `json:"token"`
	Legs     []legJSON `json:"legs"`
	Deadline int64     `json:"deadline,omitempty"`
	MetaHash string    `json:"meta_hash,omitempty"`
}

type createSplitResponse struct {
	SplitID uint64 `json:"split_id"`
	Total   uint64 `json:"total"`
}

func (s *Server) handleCreateSplit(w http.ResponseWriter, r *http.Request) {
	var req createSplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	legs := make([]models.Leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = models.Leg{Participant: l.Participant, Amount: l.Amount}
	}

	split, err := s.coord.CreateSplit(r.Context(), req.Payer, req.Token, legs, req.Deadline, req.MetaHash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSplitResponse{SplitID: split.ID, Total: split.TotalAmount})
}

type splitResponse struct {
	SplitID   uint64    `json:"split_id"`
	Payer     string    `json:"payer"`
	Token     string    `json:"token"`
	Total     uint64    `json:"total"`
	CreatedAt int64     `json:"created_at"`
	Deadline  int64     `json:"deadline,omitempty"`
	MetaHash  string    `json:"meta_hash,omitempty"`
	Settled   bool      `json:"settled"`
	Legs      []legJSON `json:"legs"`
}

func (s *Server) handleGetSplit(w http.ResponseWriter, r *http.Request) {
	id, ok := splitID(w, r)
	if !ok {
		return
	}
	split, err := s.coord.GetSplit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	legs := make([]legJSON, len(split.Legs))
	for i, l := range split.Legs {
		legs[i] = legJSON{Participant: l.Participant, Amount: l.Amount}
	}
	writeJSON(w, http.StatusOK, splitResponse{
		SplitID:   split.ID,
		Payer:     split.Payer,
		Token:     split.Token,
		Total:     split.TotalAmount,
		CreatedAt: split.CreatedAt,
		Deadline:  split.Deadline,
		MetaHash:  split.MetaHash,
		Settled:   split.Settled,
		Legs:      legs,
	})
}

type requiredAmountResponse struct {
	Participant string `json:"participant"`
	Amount      uint64 `json:"amount"`
}

func (s *Server) handleRequiredAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := splitID(w, r)
	if !ok {
		return
	}
	participant := r.PathValue("participant")
	amount, err := s.coord.RequiredAmount(r.Context(), id, participant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requiredAmountResponse{Participant: participant, Amount: amount})
}

type digestResponse struct {
	Digest string `json:"digest"`
}

// handleDigest lets a signer preview the exact digest the coordinator will
// verify. Convenience only: the digest is deterministic, so signers can just
// as well compute it offline.
func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	id, ok := splitID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	participant := q.Get("participant")
	if participant == "" {
		badRequest(w, "participant query parameter required")
		return
	}
	var deadline int64
	if v := q.Get("deadline"); v != "" {
		var err error
		deadline, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid deadline")
			return
		}
	}
	salt, err := parseSalt(q.Get("salt"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	digest, err := s.coord.ApprovalDigest(r.Context(), id, participant, deadline, salt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, digestResponse{Digest: hex.EncodeToString(digest[:])})
}

// settleRequest mirrors the settle operation's parallel arrays. All five must
// have the same length.
type settleRequest struct {
	Participants []string `json:"participants"`
	Amounts      []uint64 `json:"amounts"`
	Deadlines    []int64  `json:"deadlines"`
	Salts        []string `json:"salts"`
	Signatures   []string `json:"signatures"`
}

type settleResponse struct {
	SplitID uint64 `json:"split_id"`
	Settled bool   `json:"settled"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, ok := splitID(w, r)
	if !ok {
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	n := len(req.Participants)
	if len(req.Amounts) != n || len(req.Deadlines) != n || len(req.Salts) != n || len(req.Signatures) != n {
		badRequest(w, "parallel arrays must have equal length")
		return
	}

	entries := make([]models.ApprovalEntry, n)
	for i := 0; i < n; i++ {
		salt, err := parseSalt(req.Salts[i])
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		sig, err := parseSignature(req.Signatures[i])
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		entries[i] = models.ApprovalEntry{
			Participant: req.Participants[i],
			Amount:      req.Amounts[i],
			Deadline:    req.Deadlines[i],
			Salt:        salt,
			Signature:   sig,
		}
	}

	if err := s.coord.Settle(r.Context(), id, entries); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{SplitID: id, Settled: true})
}

type eventJSON struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Participant string `json:"participant,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := splitID(w, r)
	if !ok {
		return
	}
	// Events only exist for splits that exist.
	if _, err := s.coord.GetSplit(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	events, err := s.coord.ListEvents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]eventJSON, len(events))
	for i, ev := range events {
		out[i] = eventJSON{
			ID:          ev.ID,
			Kind:        string(ev.Kind),
			Participant: ev.Participant,
			Amount:      ev.Amount,
			CreatedAt:   ev.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// splitID parses the {id} path segment, reporting a bad request on failure.
func splitID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid split id")
		return 0, false
	}
	return id, true
}

func parseSalt(s string) ([approval.SaltSize]byte, error) {
	var salt [approval.SaltSize]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != approval.SaltSize {
		return salt, errSaltFormat
	}
	copy(salt[:], b)
	return salt, nil
}

func parseSignature(s string) ([approval.SignatureSize]byte, error) {
	var sig [approval.SignatureSize]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != approval.SignatureSize {
		return sig, errSignatureFormat
	}
	copy(sig[:], b)
	return sig, nil
}

var (
	errSaltFormat      = jsonError("salt must be 32 bytes of hex")
	errSignatureFormat = jsonError("signature must be 65 bytes of hex")
)

// jsonError is a trivial error type for request-format messages.
type jsonError string

func (e jsonError) Error() string { return string(e) }
