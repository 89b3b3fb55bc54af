package signature_test

import (
	"testing"

	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	data := []byte(`{"kind":"usage","usage":42}`)

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(data, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	publicKey := signature.PublicKey(pk)
	if err := signature.Verify(publicKey, data, sig); err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}

	if !(signature.ECDSA{}).Verify(publicKey, data, sig) {
		t.Fatalf("Should be able to verify the signature through the verifier.")
	}
}

func Test_VerifyRejects(t *testing.T) {
	data := []byte("invoice 1")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	other, err := crypto.HexToECDSA(otherHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a second private key: %s", err)
	}

	sig, err := signature.Sign(data, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if err := signature.Verify(signature.PublicKey(pk), []byte("invoice 2"), sig); err == nil {
		t.Fatalf("Should not verify a signature over different data.")
	}

	if err := signature.Verify(signature.PublicKey(other), data, sig); err == nil {
		t.Fatalf("Should not verify a signature with the wrong public key.")
	}

	if err := signature.Verify(signature.PublicKey(pk), data, "0x1234"); err == nil {
		t.Fatalf("Should not verify a truncated signature.")
	}

	if err := signature.Verify("not-hex", data, sig); err == nil {
		t.Fatalf("Should not verify with a malformed public key.")
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}
	hash := "0x0f6887ac85101d6d6425a617edf35bd721b5f619fb92c36c3d2224e3bdb0ee5a"

	h := signature.Hash(value)
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the right hash: %s", h[:6])
	}

	h = signature.Hash(value)
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the same hash twice.")
	}

	if len(h) != len(signature.ZeroHash) {
		t.Fatalf("Should get back a hash the same length as the zero hash.")
	}
}
