package razorpay

import "testing"

const (
	testSecret      = "test_secret"
	referenceDigest = "c9ba3b9258232e91606820eb3782dcdb0bacfde9a66fa65759338c8a84871fbb"
)

func TestSignMatchesReferenceValue(t *testing.T) {
	if got := Sign(testSecret, "ORDER123", "PAY456"); got != referenceDigest {
		t.Fatalf("expected %s, got %s", referenceDigest, got)
	}
}

func TestVerifyPaymentSignatureAcceptsReference(t *testing.T) {
	if !VerifyPaymentSignature(testSecret, "ORDER123", "PAY456", referenceDigest) {
		t.Fatal("expected reference signature to verify")
	}
}

func TestVerifyPaymentSignatureRejectsSingleCharacterMutations(t *testing.T) {
	cases := []struct {
		name                 string
		orderRef, paymentRef string
		signature            string
	}{
		{"order ref", "ORDER124", "PAY456", referenceDigest},
		{"payment ref", "ORDER123", "PAY457", referenceDigest},
		{"signature", "ORDER123", "PAY456", "d" + referenceDigest[1:]},
		{"signature tail", "ORDER123", "PAY456", referenceDigest[:63] + "a"},
		{"upper-cased hex letter", "ORDER123", "PAY456", "C" + referenceDigest[1:]},
		{"trailing space", "ORDER123", "PAY456", referenceDigest + " "},
		{"leading space", "ORDER123", "PAY456", " " + referenceDigest},
		{"padded order ref", "ORDER123 ", "PAY456", referenceDigest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifyPaymentSignature(testSecret, tc.orderRef, tc.paymentRef, tc.signature) {
				t.Fatal("expected mutated input to fail verification")
			}
		})
	}
}

func TestVerifyPaymentSignatureRejectsMalformedInput(t *testing.T) {
	if VerifyPaymentSignature(testSecret, "ORDER123", "PAY456", "not-hex") {
		t.Fatal("non-hex signature must fail")
	}
	if VerifyPaymentSignature(testSecret, "ORDER123", "PAY456", "") {
		t.Fatal("empty signature must fail")
	}
	if VerifyPaymentSignature("", "ORDER123", "PAY456", referenceDigest) {
		t.Fatal("empty secret must fail")
	}
	if VerifyPaymentSignature("other_secret", "ORDER123", "PAY456", referenceDigest) {
		t.Fatal("different secret must fail")
	}
}
