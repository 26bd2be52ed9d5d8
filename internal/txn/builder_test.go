package txn

import (
	"bytes"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-custody/go-backend/pkg/models"
)

func testEnv() Env {
	var gh types.Digest
	for i := range gh {
		gh[i] = byte(i)
	}
	return Env{GenesisID: "testnet-v1.0", GenesisHash: gh}
}

func testParams() models.NetworkParameters {
	return models.NetworkParameters{LastRound: 5000, MinFee: 1000}
}

func addr(seed byte) types.Address {
	var a types.Address
	a[0] = seed
	a[31] = seed
	return a
}

func TestHeaderValidityWindow(t *testing.T) {
	p := testParams()
	built := Payment(testEnv(), addr(1), addr(2), 100, p)

	if built.FirstValid != types.Round(p.LastRound) {
		t.Fatalf("FirstValid = %d, want %d", built.FirstValid, p.LastRound)
	}
	if built.LastValid != types.Round(p.LastRound+1000) {
		t.Fatalf("LastValid = %d, want %d", built.LastValid, p.LastRound+1000)
	}
	if built.Fee != types.MicroAlgos(p.MinFee) {
		t.Fatalf("Fee = %d, want flat min fee %d", built.Fee, p.MinFee)
	}
}

func TestAssetTransferOptInOmitsAmount(t *testing.T) {
	user := addr(7)
	optIn, err := AssetTransfer(testEnv(), user, user, 42, 0, nil, nil, testParams())
	if err != nil {
		t.Fatalf("AssetTransfer: %v", err)
	}

	var fields map[string]any
	if err := msgpack.Decode(msgpack.Encode(&optIn), &fields); err != nil {
		t.Fatalf("decode encoded txn: %v", err)
	}
	if _, present := fields["aamt"]; present {
		t.Fatal("zero-amount opt-in must not encode an explicit amount field")
	}
	if _, present := fields["xaid"]; !present {
		t.Fatal("opt-in must encode the asset id")
	}
}

func TestAssetTransferCarriesLeaseAndNote(t *testing.T) {
	lease := bytes.Repeat([]byte{0xAB}, 32)
	note := []byte("invoice-991")
	built, err := AssetTransfer(testEnv(), addr(1), addr(2), 42, 500, lease, note, testParams())
	if err != nil {
		t.Fatalf("AssetTransfer: %v", err)
	}
	if !bytes.Equal(built.Lease[:], lease) {
		t.Fatal("lease was not copied into the header")
	}
	if !bytes.Equal(built.Note, note) {
		t.Fatal("note was not attached")
	}
}

func TestAssetTransferRejectsShortLease(t *testing.T) {
	_, err := AssetTransfer(testEnv(), addr(1), addr(2), 42, 500, []byte("short"), nil, testParams())
	if err == nil {
		t.Fatal("expected an error for a 5-byte lease")
	}
}

func TestAssetClawbackRoles(t *testing.T) {
	authority := addr(1)
	holder := addr(2)
	receiver := addr(3)
	built, err := AssetClawback(testEnv(), authority, holder, receiver, 42, 500, nil, testParams())
	if err != nil {
		t.Fatalf("AssetClawback: %v", err)
	}

	if built.Sender != authority {
		t.Fatalf("sender = %s, want the clawback authority", built.Sender)
	}
	if built.AssetSender != holder {
		t.Fatalf("asset sender = %s, want the holder", built.AssetSender)
	}
	if built.AssetReceiver != receiver {
		t.Fatalf("asset receiver = %s, want the receiver", built.AssetReceiver)
	}
}

func TestAssetCreateRejectsBadRoleAddress(t *testing.T) {
	_, err := AssetCreate(testEnv(), addr(1), models.CreateAssetParams{
		Total:          1000,
		AssetName:      "token",
		ManagerAddress: "not-an-address",
	}, testParams())
	if err == nil {
		t.Fatal("expected an error for a malformed role address")
	}
}

func TestBindGroupIsOrderSensitive(t *testing.T) {
	a := Payment(testEnv(), addr(1), addr(2), 100, testParams())
	b := Payment(testEnv(), addr(2), addr(3), 200, testParams())

	bound, err := BindGroup([]types.Transaction{a, b})
	if err != nil {
		t.Fatalf("BindGroup: %v", err)
	}
	if bound[0].Group != bound[1].Group {
		t.Fatal("group members carry different group ids")
	}

	again, err := BindGroup([]types.Transaction{a, b})
	if err != nil {
		t.Fatalf("BindGroup (repeat): %v", err)
	}
	if again[0].Group != bound[0].Group {
		t.Fatal("group id is not deterministic for identical input")
	}

	permuted, err := BindGroup([]types.Transaction{b, a})
	if err != nil {
		t.Fatalf("BindGroup (permuted): %v", err)
	}
	if permuted[0].Group == bound[0].Group {
		t.Fatal("permuted order must produce a different group id")
	}
}

func TestBindGroupSingleTransaction(t *testing.T) {
	a := Payment(testEnv(), addr(1), addr(2), 100, testParams())
	bound, err := BindGroup([]types.Transaction{a})
	if err != nil {
		t.Fatalf("BindGroup: %v", err)
	}
	var zero types.Digest
	if bound[0].Group == zero {
		t.Fatal("single-element group must still be stamped")
	}
}

func TestBindGroupEmpty(t *testing.T) {
	if _, err := BindGroup(nil); err != ErrEmptyGroup {
		t.Fatalf("err = %v, want ErrEmptyGroup", err)
	}
}

func TestBytesToSignPrefix(t *testing.T) {
	built := Payment(testEnv(), addr(1), addr(2), 100, testParams())
	payload := BytesToSign(built)
	if !bytes.HasPrefix(payload, []byte("TX")) {
		t.Fatal("sign payload must carry the TX domain tag")
	}
	if !bytes.Equal(payload[2:], msgpack.Encode(&built)) {
		t.Fatal("sign payload body must be the canonical encoding")
	}
}

func TestAttachSignature(t *testing.T) {
	built := Payment(testEnv(), addr(1), addr(2), 100, testParams())
	sig := bytes.Repeat([]byte{0x11}, 64)

	raw, err := AttachSignature(built, sig)
	if err != nil {
		t.Fatalf("AttachSignature: %v", err)
	}
	var stx types.SignedTxn
	if err := msgpack.Decode(raw, &stx); err != nil {
		t.Fatalf("decode signed txn: %v", err)
	}
	if !bytes.Equal(stx.Sig[:], sig) {
		t.Fatal("signature was not preserved")
	}
	if stx.Txn.Sender != built.Sender {
		t.Fatal("transaction was not preserved")
	}
}

func TestAttachSignatureRejectsBadLength(t *testing.T) {
	built := Payment(testEnv(), addr(1), addr(2), 100, testParams())
	if _, err := AttachSignature(built, []byte("short")); err == nil {
		t.Fatal("expected an error for a short signature")
	}
}
