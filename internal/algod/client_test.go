package algod

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "node-token", srv.Client())
}

func TestSuggestedParams(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transactions/params" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Algo-API-Token") != "node-token" {
			t.Fatal("api token header missing")
		}
		fmt.Fprint(w, `{"min-fee":1000,"last-round":4242}`)
	}))

	params, err := client.SuggestedParams(context.Background())
	if err != nil {
		t.Fatalf("SuggestedParams: %v", err)
	}
	if params.MinFee != 1000 || params.LastRound != 4242 {
		t.Fatalf("params = %+v", params)
	}
}

func TestAccountInformationUnknownAddressIsZeroState(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no accounts found for address"}`, http.StatusNotFound)
	}))

	state, err := client.AccountInformation(context.Background(), "ADDR")
	if err != nil {
		t.Fatalf("AccountInformation: %v", err)
	}
	if state.Balance != 0 || state.MinBalance != 0 {
		t.Fatalf("state = %+v, want the zero state", state)
	}
}

func TestAccountInformation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("exclude") != "all" {
			t.Fatal("account read must exclude asset listings")
		}
		fmt.Fprint(w, `{"amount":500000,"min-balance":200000}`)
	}))

	state, err := client.AccountInformation(context.Background(), "ADDR")
	if err != nil {
		t.Fatalf("AccountInformation: %v", err)
	}
	if state.Available() != 300_000 {
		t.Fatalf("available = %d, want 300000", state.Available())
	}
}

func TestAccountAssetInformationNotOptedIn(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"account asset info not found"}`, http.StatusNotFound)
	}))

	holding, err := client.AccountAssetInformation(context.Background(), "ADDR", 42)
	if err != nil {
		t.Fatalf("AccountAssetInformation: %v", err)
	}
	if holding != nil {
		t.Fatal("missing holding must be nil, not an error and not a zero value")
	}
}

func TestAccountAssetInformationOptedIn(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"asset-holding":{"amount":0,"asset-id":42,"is-frozen":false}}`)
	}))

	holding, err := client.AccountAssetInformation(context.Background(), "ADDR", 42)
	if err != nil {
		t.Fatalf("AccountAssetInformation: %v", err)
	}
	if holding == nil || holding.Amount != 0 || holding.AssetID != 42 {
		t.Fatalf("holding = %+v, want an opted-in zero balance", holding)
	}
}

func TestSubmitRawTransaction(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/transactions" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/x-binary" {
			t.Fatal("submission must be raw binary")
		}
		fmt.Fprint(w, `{"txId":"ABCD1234"}`)
	}))

	txID, err := client.SubmitRawTransaction(context.Background(), []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("SubmitRawTransaction: %v", err)
	}
	if txID != "ABCD1234" {
		t.Fatalf("txID = %q", txID)
	}
}

func TestSubmitRawTransactionRejection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"transactionpool.remember: txn dead"}`, http.StatusBadRequest)
	}))

	_, err := client.SubmitRawTransaction(context.Background(), []byte{0x01})
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *RejectedError", err)
	}
	if rejected.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", rejected.StatusCode)
	}
	if rejected.Message != "transactionpool.remember: txn dead" {
		t.Fatalf("message %q must come from the node body verbatim", rejected.Message)
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, "", nil)

	_, err := client.SuggestedParams(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestWaitForConfirmationConfirms(t *testing.T) {
	var polls atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/status":
			fmt.Fprint(w, `{"last-round":100}`)
		case r.URL.Path == "/v2/transactions/pending/TX1":
			if polls.Add(1) < 3 {
				fmt.Fprint(w, `{"confirmed-round":0,"pool-error":""}`)
				return
			}
			fmt.Fprint(w, `{"confirmed-round":102,"pool-error":"","asset-index":7}`)
		default:
			// wait-for-block-after returns immediately in tests
			fmt.Fprint(w, `{}`)
		}
	}))

	result, err := client.WaitForConfirmation(context.Background(), "TX1", 10)
	if err != nil {
		t.Fatalf("WaitForConfirmation: %v", err)
	}
	if result.ConfirmedRound != 102 || result.AssetIndex != 7 {
		t.Fatalf("result = %+v", result)
	}
}

func TestWaitForConfirmationPoolError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/status":
			fmt.Fprint(w, `{"last-round":100}`)
		case "/v2/transactions/pending/TX1":
			fmt.Fprint(w, `{"confirmed-round":0,"pool-error":"overspend"}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))

	_, err := client.WaitForConfirmation(context.Background(), "TX1", 10)
	var pool *PoolRejectedError
	if !errors.As(err, &pool) {
		t.Fatalf("err = %v, want *PoolRejectedError", err)
	}
	if pool.PoolError != "overspend" {
		t.Fatalf("pool error %q", pool.PoolError)
	}
}

func TestWaitForConfirmationTimesOut(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/status":
			fmt.Fprint(w, `{"last-round":100}`)
		case "/v2/transactions/pending/TX1":
			fmt.Fprint(w, `{"confirmed-round":0,"pool-error":""}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))

	_, err := client.WaitForConfirmation(context.Background(), "TX1", 2)
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("err = %v, want ErrConfirmationTimeout", err)
	}
}
