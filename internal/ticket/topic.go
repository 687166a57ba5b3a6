package ticket

import "strings"

// Topic is the metadata a ticket channel carries in its topic string:
//
//	topic := field (" | " field)*
//	field := key ":" value
//
// Keys are requester, handle and claimed_by. An empty value is written as
// "none". Unknown keys are ignored on decode and a missing claimed_by means
// the ticket is unclaimed.
type Topic struct {
	Requester string
	Handle    string
	ClaimedBy string
}

const (
	topicKeyRequester = "requester"
	topicKeyHandle    = "handle"
	topicKeyClaimedBy = "claimed_by"

	topicSep   = " | "
	topicEmpty = "none"
)

func EncodeTopic(t Topic) string {
	fields := []string{
		topicKeyRequester + ":" + encodeValue(t.Requester),
		topicKeyHandle + ":" + encodeValue(t.Handle),
		topicKeyClaimedBy + ":" + encodeValue(t.ClaimedBy),
	}
	return strings.Join(fields, topicSep)
}

func DecodeTopic(s string) Topic {
	var t Topic
	for _, field := range strings.Split(s, "|") {
		key, value, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			continue
		}
		value = decodeValue(value)
		switch strings.TrimSpace(key) {
		case topicKeyRequester:
			t.Requester = value
		case topicKeyHandle:
			t.Handle = value
		case topicKeyClaimedBy:
			t.ClaimedBy = value
		}
	}
	return t
}

func encodeValue(v string) string {
	v = strings.TrimSpace(strings.ReplaceAll(v, "|", ""))
	v = strings.Join(strings.Fields(v), "_")
	if v == "" {
		return topicEmpty
	}
	return v
}

func decodeValue(v string) string {
	v = strings.TrimSpace(v)
	if v == topicEmpty {
		return ""
	}
	return v
}
