package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/echa/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
	"github.com/aoakande/gene-vault-stacks/pkg/state"
	"github.com/aoakande/gene-vault-stacks/pkg/vault"
)

var (
	port            string
	statePath       string
	contractAccount string
	splitBonus      bool
	decoder         = schema.NewDecoder()
	flags           = flag.NewFlagSet("node", flag.ContinueOnError)
)

func init() {
	flags.Usage = func() {}
	flags.StringVar(&port, "port", "8000", "HTTP server port")
	flags.StringVar(&statePath, "state", envOr("VAULT_STATE_DIR", "./vault-state"), "badger state directory")
	flags.StringVar(&contractAccount, "contract", envOr("VAULT_CONTRACT_ID", "vault.contract"), "contract escrow account")
	flags.BoolVar(&splitBonus, "split-bonus", false, "use per-call even split for citation bonuses")
	decoder.IgnoreUnknownKeys(true)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

type server struct {
	chain *stacks.Sim
	vault *vault.Vault
	store *state.Store
}

func run() error {
	err := flags.Parse(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Printf("Usage: %s [flags]\n", os.Args[0])
			fmt.Println("\nFlags")
			flags.PrintDefaults()
			return nil
		}
		return err
	}

	store, err := state.Open(statePath)
	if err != nil {
		return err
	}
	defer store.Close()

	chain := stacks.NewSim()
	cfg := vault.Config{
		ContractAccount:    stacks.Principal(contractAccount),
		SplitCitationBonus: splitBonus,
	}
	snap, err := store.Load()
	if err != nil {
		return err
	}
	height, err := store.LoadHeight()
	if err != nil {
		return err
	}
	chain.Advance(height)
	srv := &server{
		chain: chain,
		vault: vault.Restore(chain, cfg, snap),
		store: store,
	}
	log.Infof("Loaded state: %d segments, %d payments", snap.Stats.TotalSegments, snap.Stats.TotalPayments)

	r := mux.NewRouter()
	r.HandleFunc("/register", srv.register).Methods(http.MethodPost)
	r.HandleFunc("/grant", srv.grant).Methods(http.MethodPost)
	r.HandleFunc("/revoke", srv.revoke).Methods(http.MethodPost)
	r.HandleFunc("/query", srv.recordQuery).Methods(http.MethodPost)
	r.HandleFunc("/update-access", srv.updateAccess).Methods(http.MethodPost)
	r.HandleFunc("/pay", srv.pay).Methods(http.MethodPost)
	r.HandleFunc("/anchor", srv.anchor).Methods(http.MethodPost)
	r.HandleFunc("/complete", srv.complete).Methods(http.MethodPost)
	r.HandleFunc("/withdraw", srv.withdraw).Methods(http.MethodPost)
	r.HandleFunc("/cite", srv.cite).Methods(http.MethodPost)
	r.HandleFunc("/advance", srv.advance).Methods(http.MethodPost)
	r.HandleFunc("/fund", srv.fund).Methods(http.MethodPost)
	r.HandleFunc("/segments/{id}", srv.segmentInfo).Methods(http.MethodGet)
	r.HandleFunc("/payments/{id}", srv.paymentInfo).Methods(http.MethodGet)
	r.HandleFunc("/revenue/{account}", srv.revenueInfo).Methods(http.MethodGet)
	r.HandleFunc("/impact/{id}", srv.impactInfo).Methods(http.MethodGet)
	r.HandleFunc("/access", srv.access).Methods(http.MethodGet)
	r.HandleFunc("/stats", srv.protocolStats).Methods(http.MethodGet)

	log.Infof("Listening on :%s", port)
	return http.ListenAndServe(":"+port, r)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return decoder.Decode(dst, r.Form)
}

func parseHash(s string) (vault.DataHash, error) {
	var h vault.DataHash
	buf, err := hex.DecodeString(s)
	if err != nil || len(buf) != len(h) {
		return h, fmt.Errorf("invalid 32-byte hex hash %q", s)
	}
	copy(h[:], buf)
	return h, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Date", time.Now().Format(http.TimeFormat))
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vault.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, vault.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrAlreadyExists), errors.Is(err, vault.ErrAlreadyProcessed):
		status = http.StatusConflict
	case errors.Is(err, vault.ErrInvalidParameters), errors.Is(err, vault.ErrInsufficientFunds):
		status = http.StatusBadRequest
	}
	log.Error(err)
	http.Error(w, err.Error(), status)
}

// persist commits the current contract state after a successful
// mutation. A node that cannot persist must not keep serving.
func (s *server) persist(w http.ResponseWriter, result interface{}) {
	if err := s.store.Save(s.vault.Snapshot()); err != nil {
		log.Fatalf("state save failed: %v", err)
	}
	if err := s.store.SaveHeight(s.chain.Height()); err != nil {
		log.Fatalf("state save failed: %v", err)
	}
	writeJSON(w, result)
}

type registerRequest struct {
	Sender        string `schema:"sender,required"`
	SegmentID     string `schema:"segment_id,required"`
	DataHash      string `schema:"data_hash,required"`
	SegmentType   string `schema:"segment_type"`
	AccessLevel   int    `schema:"access_level"`
	ConsentBlocks int64  `schema:"consent_blocks"`
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	hash, err := parseHash(req.DataHash)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err = s.vault.RegisterSegment(ctx, vault.SegmentID(req.SegmentID), hash,
		req.SegmentType, vault.AccessLevel(req.AccessLevel), req.ConsentBlocks)
	if err != nil {
		writeErr(w, err)
		return
	}
	log.Infof("Registered segment %s for %s", req.SegmentID, req.Sender)
	s.persist(w, map[string]string{"segment_id": req.SegmentID})
}

type grantRequest struct {
	Sender         string `schema:"sender,required"`
	SegmentID      string `schema:"segment_id,required"`
	Researcher     string `schema:"researcher,required"`
	DurationBlocks int64  `schema:"duration_blocks"`
	Purpose        string `schema:"purpose"`
}

func (s *server) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err := s.vault.GrantAccess(ctx, vault.SegmentID(req.SegmentID),
		stacks.Principal(req.Researcher), req.DurationBlocks, req.Purpose)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.persist(w, map[string]bool{"ok": true})
}

func (s *server) revoke(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err := s.vault.RevokeAccess(ctx, vault.SegmentID(req.SegmentID), stacks.Principal(req.Researcher))
	if err != nil {
		writeErr(w, err)
		return
	}
	s.persist(w, map[string]bool{"ok": true})
}

type queryRequest struct {
	Sender     string   `schema:"sender,required"`
	QueryID    string   `schema:"query_id,required"`
	Segments   []string `schema:"segments"`
	QueryType  string   `schema:"query_type"`
	ResultHash string   `schema:"result_hash,required"`
}

func (s *server) recordQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	hash, err := parseHash(req.ResultHash)
	if err != nil {
		writeErr(w, err)
		return
	}
	segs := make([]vault.SegmentID, len(req.Segments))
	for i, id := range req.Segments {
		segs[i] = vault.SegmentID(id)
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err = s.vault.RecordQuery(ctx, vault.QueryID(req.QueryID), segs, req.QueryType, hash)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.persist(w, map[string]string{"query_id": req.QueryID})
}

type updateAccessRequest struct {
	Sender        string `schema:"sender,required"`
	SegmentID     string `schema:"segment_id,required"`
	AccessLevel   int    `schema:"access_level"`
	ConsentBlocks int64  `schema:"consent_blocks"`
}

func (s *server) updateAccess(w http.ResponseWriter, r *http.Request) {
	var req updateAccessRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err := s.vault.UpdateAccess(ctx, vault.SegmentID(req.SegmentID),
		vault.AccessLevel(req.AccessLevel), req.ConsentBlocks)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.persist(w, map[string]bool{"ok": true})
}

type payRequest struct {
	Sender    string   `schema:"sender,required"`
	PaymentID string   `schema:"payment_id,required"`
	Recipient string   `schema:"recipient,required"`
	Segments  []string `schema:"segments"`
	Amount    uint64   `schema:"amount"`
}

func (s *server) pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	segs := make([]vault.SegmentID, len(req.Segments))
	for i, id := range req.Segments {
		segs[i] = vault.SegmentID(id)
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err := s.vault.ProcessPayment(ctx, vault.PaymentID(req.PaymentID),
		stacks.Principal(req.Recipient), segs, stacks.Money(req.Amount))
	if err != nil {
		writeErr(w, err)
		return
	}
	log.Infof("Escrowed payment %s: %d from %s to %s", req.PaymentID, req.Amount, req.Sender, req.Recipient)
	s.persist(w, map[string]string{"payment_id": req.PaymentID})
}

type paymentOpRequest struct {
	Sender    string `schema:"sender,required"`
	PaymentID string `schema:"payment_id,required"`
}

func (s *server) anchor(w http.ResponseWriter, r *http.Request) {
	var req paymentOpRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	if err := s.vault.AnchorPayment(ctx, vault.PaymentID(req.PaymentID)); err != nil {
		writeErr(w, err)
		return
	}
	s.persist(w, map[string]bool{"ok": true})
}

func (s *server) complete(w http.ResponseWriter, r *http.Request) {
	var req paymentOpRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	if err := s.vault.CompletePayment(ctx, vault.PaymentID(req.PaymentID)); err != nil {
		writeErr(w, err)
		return
	}
	log.Infof("Settled payment %s", req.PaymentID)
	s.persist(w, map[string]string{"payment_id": req.PaymentID})
}

type withdrawRequest struct {
	Sender string `schema:"sender,required"`
}

func (s *server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	amount, err := s.vault.WithdrawEarnings(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	log.Infof("Withdrawal by %s: %d", req.Sender, amount)
	s.persist(w, map[string]uint64{"amount": uint64(amount)})
}

type citeRequest struct {
	Sender     string   `schema:"sender,required"`
	ResearchID string   `schema:"research_id,required"`
	Providers  []string `schema:"providers"`
	Citations  uint64   `schema:"citations"`
}

func (s *server) cite(w http.ResponseWriter, r *http.Request) {
	var req citeRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	providers := make([]stacks.Principal, len(req.Providers))
	for i, p := range req.Providers {
		providers[i] = stacks.Principal(p)
	}
	ctx := stacks.CallContext{Sender: stacks.Principal(req.Sender)}
	err := s.vault.RegisterCitation(ctx, vault.ResearchID(req.ResearchID), providers, req.Citations)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.persist(w, map[string]string{"research_id": req.ResearchID})
}

type advanceRequest struct {
	Blocks int64 `schema:"blocks"`
}

func (s *server) advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Blocks <= 0 {
		req.Blocks = 1
	}
	s.chain.Advance(req.Blocks)
	if err := s.store.SaveHeight(s.chain.Height()); err != nil {
		log.Fatalf("state save failed: %v", err)
	}
	writeJSON(w, map[string]int64{"height": s.chain.Height()})
}

type fundRequest struct {
	Account string `schema:"account,required"`
	Amount  uint64 `schema:"amount"`
}

func (s *server) fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := parseForm(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	s.chain.Fund(stacks.Principal(req.Account), stacks.Money(req.Amount))
	writeJSON(w, map[string]uint64{"balance": uint64(s.chain.Balance(stacks.Principal(req.Account)))})
}

func (s *server) segmentInfo(w http.ResponseWriter, r *http.Request) {
	id := vault.SegmentID(mux.Vars(r)["id"])
	seg, ok := s.vault.GetSegmentInfo(id)
	if !ok {
		writeErr(w, fmt.Errorf("%w: segment %q", vault.ErrNotFound, id))
		return
	}
	writeJSON(w, seg)
}

func (s *server) paymentInfo(w http.ResponseWriter, r *http.Request) {
	id := vault.PaymentID(mux.Vars(r)["id"])
	p, ok := s.vault.GetPayment(id)
	if !ok {
		writeErr(w, fmt.Errorf("%w: payment %q", vault.ErrNotFound, id))
		return
	}
	writeJSON(w, p)
}

func (s *server) revenueInfo(w http.ResponseWriter, r *http.Request) {
	acct := stacks.Principal(mux.Vars(r)["account"])
	writeJSON(w, s.vault.GetProviderRevenue(acct))
}

func (s *server) impactInfo(w http.ResponseWriter, r *http.Request) {
	id := vault.ResearchID(mux.Vars(r)["id"])
	impact, ok := s.vault.GetResearchImpact(id)
	if !ok {
		writeErr(w, fmt.Errorf("%w: research %q", vault.ErrNotFound, id))
		return
	}
	writeJSON(w, impact)
}

func (s *server) access(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok := s.vault.HasAccess(vault.SegmentID(q.Get("segment_id")), stacks.Principal(q.Get("account")))
	writeJSON(w, map[string]bool{"has_access": ok})
}

func (s *server) protocolStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.vault.Stats())
}
