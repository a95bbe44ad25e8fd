package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentInitiationResult_MarshalJSON(t *testing.T) {
	t.Run("Redirect", func(t *testing.T) {
		out, err := json.Marshal(NewRedirectResult("https://pay.example/c/1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"url":"https://pay.example/c/1"}`, string(out))
	})

	t.Run("Push", func(t *testing.T) {
		out, err := json.Marshal(NewPushResult(true, "Confirmez sur votre téléphone", "https://app.example/payment/pending"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"message":"Confirmez sur votre téléphone","url":"https://app.example/payment/pending"}`, string(out))
	})
}

func TestPaymentInitiationResult_UnmarshalJSON(t *testing.T) {
	var redirect PaymentInitiationResult
	require.NoError(t, json.Unmarshal([]byte(`{"url":"https://pay.example/c/1"}`), &redirect))
	assert.False(t, redirect.IsPush())
	assert.Equal(t, "https://pay.example/c/1", redirect.RedirectURL)

	var push PaymentInitiationResult
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"message":"refused","url":"u"}`), &push))
	require.True(t, push.IsPush())
	assert.False(t, push.Push.Accepted)
	assert.Equal(t, "refused", push.Push.Message)
}

func TestPaymentIntent_ResolvedDescription(t *testing.T) {
	intent := PaymentIntent{PurposeType: PurposeTuition}
	assert.Equal(t, "Frais de scolarité", intent.ResolvedDescription())

	intent.Description = "Trimestre 2"
	assert.Equal(t, "Trimestre 2", intent.ResolvedDescription())
}

func TestPaymentIntent_Reference(t *testing.T) {
	intent := PaymentIntent{PurposeType: PurposeSubscription, TenantID: "s1", SubordinateID: "monthly", Amount: 15000}
	assert.Equal(t, "subscription|s1|monthly|15000", intent.Reference())
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{&MissingParameterError{Field: "amount"}, KindClientInput},
		{fmt.Errorf("wrapped: %w", &UnsupportedProviderError{Provider: "paypal"}), KindClientInput},
		{&InvalidParameterError{Field: "tenantId", Reason: "bad"}, KindClientInput},
		{&DecodeError{Token: "x"}, KindClientInput},
		{ErrInvalidSignature, KindClientInput},
		{fmt.Errorf("%w: %q", ErrUnknownPlan, "Gold"), KindConfiguration},
		{ErrProviderNotConfigured, KindConfiguration},
		{&MeasurementError{Query: "cycles", Err: assert.AnError}, KindMeasurement},
		{&UpstreamError{Provider: ProviderWave, StatusCode: 500}, KindUpstream},
		{ErrIdempotencyInFlight, KindConflict},
		{ErrTenantNotFound, KindNotFound},
		{assert.AnError, KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err), tc.err.Error())
	}
}

func TestUpstreamError_Message(t *testing.T) {
	err := &UpstreamError{Provider: ProviderPayDunya, Message: "Invalid master key"}
	assert.Equal(t, "paydunya: Invalid master key", err.Error())

	err = &UpstreamError{Provider: ProviderWave, StatusCode: 502}
	assert.Equal(t, "wave: payment initiation failed (status 502)", err.Error())
}

func TestPaymentSettledEvent_Subject(t *testing.T) {
	ev := PaymentSettledEvent{Provider: ProviderMTN, PurposeType: PurposeTuition, Status: CallbackSucceeded, Reference: "r"}
	assert.Equal(t, "billing.payments.tuition.succeeded", ev.Subject())
	assert.Equal(t, "mtn:r:succeeded", ev.MessageID())

	ev.ProviderTxnID = "txn-1"
	assert.Equal(t, "mtn:txn-1:succeeded", ev.MessageID())
}
