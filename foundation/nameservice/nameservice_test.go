package nameservice_test

import (
	"testing"

	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ebsnet/blockchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Lookup(t *testing.T) {
	t.Log("Given the need to name the originators of transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen loading the accounts folder.", testID)
		{
			ns, err := nameservice.New("../../zblock/accounts")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the folder: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the folder.", success, testID)

			pk, err := crypto.HexToECDSA("9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the private key: %v", failed, testID, err)
			}

			if name := ns.Lookup(signature.PublicKey(pk)); name != "bill" {
				t.Fatalf("\t%s\tTest %d:\tShould find bill, got %q.", failed, testID, name)
			}
			t.Logf("\t%s\tTest %d:\tShould find bill.", success, testID)

			if name := ns.Lookup("0x02unknown"); name != "0x02unknown" {
				t.Fatalf("\t%s\tTest %d:\tShould return an unknown key as is, got %q.", failed, testID, name)
			}
			t.Logf("\t%s\tTest %d:\tShould return an unknown key as is.", success, testID)

			if n := len(ns.Copy()); n != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould hold three names, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould hold three names.", success, testID)
		}
	}
}
