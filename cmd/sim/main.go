// Scenario driver against a running vault node: registers a segment,
// grants access, escrows and settles a payment, registers a citation
// and withdraws earnings. Exercises the full contract surface end to
// end over the node's HTTP API.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/echa/log"
	"github.com/google/uuid"
	cid "github.com/ipfs/go-cid"
	mc "github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"
)

var (
	nodeEndpoint string
	provider     string
	researcher   string
	segmentId    string
	payload      string
	amount       uint64
	citations    uint64
	flags        = flag.NewFlagSet("sim", flag.ContinueOnError)
)

func init() {
	flags.Usage = func() {}
	flags.StringVar(&nodeEndpoint, "node", "http://localhost:8000", "vault node endpoint")
	flags.StringVar(&provider, "provider", "provider.genome", "data provider account")
	flags.StringVar(&researcher, "researcher", "researcher.lab", "researcher account")
	flags.StringVar(&segmentId, "segment", "", "segment id (default: random)")
	flags.StringVar(&payload, "payload", "ACGT", "segment payload to hash")
	flags.Uint64Var(&amount, "amount", 1000000, "payment amount in micro-units")
	flags.Uint64Var(&citations, "citations", 3, "citation count to register")
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
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

	if segmentId == "" {
		segmentId = "seg-" + uuid.NewString()
	}

	// derive the segment's content reference the same way off-chain
	// storage would: sha2-256 multihash over the raw payload
	pref := cid.Prefix{
		Version:  1,
		Codec:    uint64(mc.Raw),
		MhType:   mh.SHA2_256,
		MhLength: -1,
	}
	c, err := pref.Sum([]byte(payload))
	if err != nil {
		return err
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return err
	}
	dataHash := hex.EncodeToString(decoded.Digest)
	log.Infof("Segment %s cid=%s", segmentId, c.String())

	// fund both sides
	if err := post("/fund", url.Values{"account": {provider}, "amount": {"1000000"}}); err != nil {
		return err
	}
	if err := post("/fund", url.Values{"account": {researcher}, "amount": {strconv.FormatUint(amount, 10)}}); err != nil {
		return err
	}

	// provider registers the segment with a one-year consent window
	err = post("/register", url.Values{
		"sender":         {provider},
		"segment_id":     {segmentId},
		"data_hash":      {dataHash},
		"segment_type":   {"wgs"},
		"access_level":   {"2"},
		"consent_blocks": {"52560"},
	})
	if err != nil {
		return err
	}

	// provider grants the researcher access
	err = post("/grant", url.Values{
		"sender":          {provider},
		"segment_id":      {segmentId},
		"researcher":      {researcher},
		"duration_blocks": {"1000"},
		"purpose":         {"association study"},
	})
	if err != nil {
		return err
	}

	// researcher records a query over the segment
	err = post("/query", url.Values{
		"sender":      {researcher},
		"query_id":    {"query-" + uuid.NewString()},
		"segments":    {segmentId},
		"query_type":  {"gwas"},
		"result_hash": {dataHash},
	})
	if err != nil {
		return err
	}

	// researcher escrows a usage payment
	paymentId := "pay-" + uuid.NewString()
	err = post("/pay", url.Values{
		"sender":     {researcher},
		"payment_id": {paymentId},
		"recipient":  {provider},
		"segments":   {segmentId},
		"amount":     {strconv.FormatUint(amount, 10)},
	})
	if err != nil {
		return err
	}

	// mine past the confirmation window, then settle
	if err := post("/advance", url.Values{"blocks": {"6"}}); err != nil {
		return err
	}
	if err := post("/complete", url.Values{"sender": {researcher}, "payment_id": {paymentId}}); err != nil {
		return err
	}

	// register citations crediting the provider
	err = post("/cite", url.Values{
		"sender":      {researcher},
		"research_id": {"research-" + uuid.NewString()},
		"providers":   {provider},
		"citations":   {strconv.FormatUint(citations, 10)},
	})
	if err != nil {
		return err
	}

	// provider withdraws accrued earnings
	if err := post("/withdraw", url.Values{"sender": {provider}}); err != nil {
		return err
	}

	return get("/stats")
}

func post(path string, form url.Values) error {
	resp, err := http.PostForm(nodeEndpoint+path, form)
	if err != nil {
		return err
	}
	return report(path, resp)
}

func get(path string) error {
	resp, err := http.Get(nodeEndpoint + path)
	if err != nil {
		return err
	}
	return report(path, resp)
}

func report(path string, resp *http.Response) error {
	defer resp.Body.Close()
	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body = json.RawMessage(`""`)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s %s", path, resp.Status, string(body))
	}
	log.Infof("%s -> %s", path, string(body))
	return nil
}
