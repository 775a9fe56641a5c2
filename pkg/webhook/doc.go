// Package webhook delivers JSON payloads to HTTP gateways.
//
// Push and SMS providers sit behind HTTP gateways in this system. Sender.Send
// posts one payload with retries and exponential backoff, signs it with
// HMAC-SHA256 when a secret is given, and can be guarded by a CircuitBreaker
// shared per endpoint:
//
//	cb := webhook.NewCircuitBreaker(5, 2, 30*time.Second)
//	err := sender.Send(ctx, gatewayURL, payload,
//	    webhook.WithSignature(secret),
//	    webhook.WithCircuitBreaker(cb),
//	    webhook.WithMaxRetries(2),
//	)
//
// Gateways verify requests with ParseSignature and VerifySignature.
package webhook
