package icmpv4_test

import (
	"bytes"
	"testing"

	"github.com/plaidnet/srouter"
	"github.com/plaidnet/srouter/ipv4/icmpv4"
)

func TestBuildEchoReplyPreservesIdentifierAndPayload(t *testing.T) {
	req := make([]byte, 8+4)
	rf, err := icmpv4.NewFrame(req)
	if err != nil {
		t.Fatal(err)
	}
	rf.SetType(icmpv4.TypeEcho)
	rf.SetCode(0)
	echo := icmpv4.FrameEcho{Frame: rf}
	echo.SetIdentifier(0x1234)
	echo.SetSequenceNumber(7)
	copy(echo.Data(), []byte{1, 2, 3, 4})
	rf.SetCRC(0)
	rf.SetCRC(rf.CalculateCRC())

	dst := make([]byte, len(req))
	reply, err := icmpv4.BuildEchoReply(dst, req, len(req))
	if err != nil {
		t.Fatal(err)
	}
	if reply.Type() != icmpv4.TypeEchoReply {
		t.Fatalf("got type %v, want echo-reply", reply.Type())
	}
	replyEcho := icmpv4.FrameEcho{Frame: reply}
	if replyEcho.Identifier() != 0x1234 || replyEcho.SequenceNumber() != 7 {
		t.Fatalf("identifier/sequence not preserved: %+v", replyEcho)
	}
	if !bytes.Equal(replyEcho.Data(), []byte{1, 2, 3, 4}) {
		t.Fatalf("payload not preserved: %v", replyEcho.Data())
	}

	var v srouter.Validator
	reply.ValidateSize(&v)
	if v.HasError() {
		t.Fatalf("unexpected validation error: %v", v.Err())
	}
	// A correctly-checksummed message sums to zero over its own bytes.
	var crc srouter.CRC791
	crc.Write(reply.RawData())
	if crc.Sum16() != 0 {
		t.Fatalf("checksum does not self-validate: %#x", crc.Sum16())
	}
}

func TestBuildErrorPadsShortDatagram(t *testing.T) {
	origDatagram := []byte{1, 2, 3} // much shorter than ErrorDataLen
	dst := make([]byte, 8+icmpv4.ErrorDataLen)
	frm, err := icmpv4.BuildError(dst, icmpv4.TypeDestinationUnreachable, uint8(icmpv4.CodeHostUnreachable), origDatagram)
	if err != nil {
		t.Fatal(err)
	}
	if frm.Type() != icmpv4.TypeDestinationUnreachable || frm.Code() != uint8(icmpv4.CodeHostUnreachable) {
		t.Fatalf("got type/code %v/%d, want dest-unreachable/1", frm.Type(), frm.Code())
	}
	data := frm.Data()
	if len(data) != icmpv4.ErrorDataLen {
		t.Fatalf("got data len %d, want %d", len(data), icmpv4.ErrorDataLen)
	}
	if !bytes.Equal(data[:3], origDatagram) {
		t.Fatalf("original datagram prefix not preserved: %v", data[:3])
	}
	for _, b := range data[3:] {
		if b != 0 {
			t.Fatal("expected zero padding after original datagram")
		}
	}
}

func TestBuildErrorRejectsShortDest(t *testing.T) {
	dst := make([]byte, 8+icmpv4.ErrorDataLen-1)
	if _, err := icmpv4.BuildError(dst, icmpv4.TypeTimeExceeded, uint8(icmpv4.CodeExceededInTransit), nil); err == nil {
		t.Fatal("expected error for undersized dest buffer")
	}
}
