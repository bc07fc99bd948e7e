package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := DepositRequest{
		IdempotencyKey: "  dep-1  ",
		CustomerEmail:  " alice@example.com ",
		Currency:       " usd ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "dep-1", req.IdempotencyKey)
	assert.Equal(t, "alice@example.com", req.CustomerEmail)
	assert.Equal(t, "usd", req.Currency)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := TransferRequest{Description: "rent <script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Description, "&lt;script&gt;")
	assert.NotContains(t, req.Description, "<script>")
}

func TestSanitizeStruct_SkipsPasswords(t *testing.T) {
	req := RegisterRequest{Name: " Alice ", Email: "a@b.c", Password: "  p<ss>word  "}
	SanitizeStruct(&req)

	assert.Equal(t, "Alice", req.Name)
	assert.Equal(t, "  p<ss>word  ", req.Password)
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	bank := "  Ziraat <b>Bank</b>  "
	req := CreateWalletRequest{Currency: "TRY", BankName: &bank}
	SanitizeStruct(&req)

	assert.Equal(t, "Ziraat &lt;b&gt;Bank&lt;/b&gt;", *req.BankName)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreateWalletRequest{Currency: "USD"}
	SanitizeStruct(&req)
	assert.Nil(t, req.IBAN)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidators(v)
	return v
}

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"ref-001", "REF_002", "a.b.c", "ABC-def_GHI.123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %q", tc)
	}
}

func TestAmountTag(t *testing.T) {
	v := newValidator()
	valid := []string{"1", "0.0001", "100.50", "10.1000"}
	invalid := []string{"0", "-5", "0.00001", "1.23456"}

	for _, s := range valid {
		req := DepositRequest{IdempotencyKey: "k", CustomerEmail: "a@b.co", Amount: decimal.RequireFromString(s), Currency: "USD"}
		assert.NoError(t, v.Struct(req), s)
	}
	for _, s := range invalid {
		req := DepositRequest{IdempotencyKey: "k", CustomerEmail: "a@b.co", Amount: decimal.RequireFromString(s), Currency: "USD"}
		assert.Error(t, v.Struct(req), s)
	}
}

func TestCurrencyTag(t *testing.T) {
	v := newValidator()
	for _, cur := range []string{"USD", "try", "Eur"} {
		assert.NoError(t, v.Struct(CreateWalletRequest{Currency: cur}), cur)
	}
	for _, cur := range []string{"US", "USDT", "U5D", ""} {
		assert.Error(t, v.Struct(CreateWalletRequest{Currency: cur}), cur)
	}
}

func TestTransferTargetCurrencyOptional(t *testing.T) {
	v := newValidator()
	req := TransferRequest{
		IdempotencyKey: "t-1", FromEmail: "a@b.co", ToEmail: "c@d.co",
		Amount: decimal.RequireFromString("5"), Currency: "USD",
	}
	assert.NoError(t, v.Struct(req))

	req.TargetCurrency = "TRYX"
	assert.Error(t, v.Struct(req))
}

func TestPositiveDecimalTag(t *testing.T) {
	v := newValidator()
	ok := UpsertRateRequest{From: "USD", To: "TRY", Rate: decimal.RequireFromString("33.123456789")}
	assert.NoError(t, v.Struct(ok))

	bad := UpsertRateRequest{From: "USD", To: "TRY", Rate: decimal.Zero}
	assert.Error(t, v.Struct(bad))
}
