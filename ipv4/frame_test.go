package ipv4_test

import (
	"testing"

	"github.com/plaidnet/srouter"
	"github.com/plaidnet/srouter/ipv4"
)

func buildValidHeader(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 20+4) // header + 4 bytes payload
	f, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	f.SetVersionAndIHL(4, 5)
	f.SetTotalLength(uint16(len(buf)))
	f.SetTTL(64)
	f.SetProtocol(ipv4.ProtoICMP)
	*f.SourceAddr() = [4]byte{10, 0, 0, 1}
	*f.DestinationAddr() = [4]byte{10, 0, 0, 2}
	f.SetCRC(0)
	f.SetCRC(f.CalculateHeaderCRC())
	return buf
}

func TestValidateCRCAcceptsGoodHeader(t *testing.T) {
	buf := buildValidHeader(t)
	f, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	var v srouter.Validator
	f.ValidateCRC(&v)
	if v.HasError() {
		t.Fatalf("unexpected validation error: %v", v.Err())
	}
}

func TestValidateCRCRejectsCorruptHeader(t *testing.T) {
	buf := buildValidHeader(t)
	buf[8] = buf[8] + 1 // corrupt the TTL without fixing the checksum
	f, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	var v srouter.Validator
	f.ValidateCRC(&v)
	if !v.HasError() {
		t.Fatal("expected checksum validation to fail")
	}
}

func TestValidateExceptCRCRejectsBadVersion(t *testing.T) {
	buf := buildValidHeader(t)
	f, _ := ipv4.NewFrame(buf)
	f.SetVersionAndIHL(6, 5)
	var v srouter.Validator
	f.ValidateExceptCRC(&v)
	if !v.HasError() {
		t.Fatal("expected version validation to fail")
	}
}

func TestValidateSizeRejectsShortTotalLength(t *testing.T) {
	buf := buildValidHeader(t)
	f, _ := ipv4.NewFrame(buf)
	f.SetTotalLength(10)
	var v srouter.Validator
	f.ValidateSize(&v)
	if !v.HasError() {
		t.Fatal("expected size validation to fail for total length < header")
	}
}

func TestValidateSizeRejectsTotalLengthShorterThanIHL(t *testing.T) {
	buf := make([]byte, 60) // room for the IHL=15 header this datagram claims
	f, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	f.SetVersionAndIHL(4, 15) // HeaderLength() == 60
	f.SetTotalLength(20)      // far shorter than the claimed header
	var v srouter.Validator
	f.ValidateSize(&v)
	if !v.HasError() {
		t.Fatal("expected validation error for total length shorter than IHL*4")
	}
}

func TestHeaderLengthIncludesOptions(t *testing.T) {
	buf := make([]byte, 24+4)
	f, err := ipv4.NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	f.SetVersionAndIHL(4, 6) // IHL=6 -> 24-byte header with 4 bytes of options
	if got := f.HeaderLength(); got != 24 {
		t.Fatalf("HeaderLength() = %d, want 24", got)
	}
}
