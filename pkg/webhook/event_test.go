package webhook

import "testing"

func TestDecodeCastEvent(t *testing.T) {
	body := []byte(`{
		"type": "cast.created",
		"data": {
			"hash": "0xabc",
			"parent_hash": "0xdef",
			"text": "!montip 5 USDC",
			"timestamp": "2025-06-01T12:00:00Z",
			"author": {"fid": 42, "username": "alice"}
		}
	}`)

	event, err := DecodeCastEvent(body)
	if err != nil {
		t.Fatalf("DecodeCastEvent failed: %v", err)
	}
	if event.Hash != "0xabc" || event.ParentHash != "0xdef" {
		t.Errorf("event = %+v", event)
	}
	if event.Author.FID != 42 || event.Author.Username != "alice" {
		t.Errorf("author = %+v", event.Author)
	}
	if !event.IsReply() {
		t.Error("cast with a parent hash is a reply")
	}
}

func TestDecodeCastEvent_OtherType(t *testing.T) {
	event, err := DecodeCastEvent([]byte(`{"type":"reaction.created","data":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("event = %+v, want nil for unsupported types", event)
	}
}

func TestDecodeCastEvent_Invalid(t *testing.T) {
	if _, err := DecodeCastEvent([]byte(`not json`)); err == nil {
		t.Error("malformed body must fail to decode")
	}
	if _, err := DecodeCastEvent([]byte(`{"type":"cast.created","data":{"text":"hi"}}`)); err == nil {
		t.Error("cast without a hash must fail to decode")
	}
}

func TestCastEvent_NotAReply(t *testing.T) {
	event := &CastEvent{Hash: "0xabc"}
	if event.IsReply() {
		t.Error("cast without a parent hash is not a reply")
	}
}
