package server

import "fmt"

// Wire replies take one of two shapes: "<verb> success[ <payload>]" or
// "<verb> error <reason>". Unparseable frames get the generic parse error.

func okReply(verb string) []byte {
	return []byte(verb + " success")
}

func okPayloadReply(verb string, payload any) []byte {
	return fmt.Appendf(nil, "%s success %v", verb, payload)
}

func errReply(verb, reason string) []byte {
	return []byte(verb + " error " + reason)
}

func parseErrReply(verb string) []byte {
	return []byte("error: Cannot parse command - " + verb)
}
