package codec

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "safeharbour/pkg/domain-errors"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type CodecSuite struct {
	suite.Suite
	codec *Codec
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	c, err := New(testKey)
	s.Require().NoError(err)
	s.codec = c
}

func (s *CodecSuite) TestRoundTrip() {
	s.Run("boundaries", func() {
		for _, x := range []uint32{0, 1, 2, 4095, 4096, 1 << 20, math.MaxUint32 - 1, math.MaxUint32} {
			uin := s.codec.Encode(x)
			s.Len(uin, UINLength)
			got, err := s.codec.Decode(uin)
			s.Require().NoError(err)
			s.Equal(x, got)
		}
	})

	s.Run("random sample", func() {
		r := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 100_000; i++ {
			x := r.Uint32()
			got, err := s.codec.Decode(s.codec.Encode(x))
			s.Require().NoError(err)
			s.Require().Equal(x, got)
		}
	})
}

func (s *CodecSuite) TestInjective() {
	seen := make(map[string]uint32, 1<<17)
	for x := uint32(0); x < 1<<17; x++ {
		uin := s.codec.Encode(x)
		prev, dup := seen[uin]
		s.Require().False(dup, "uin %s produced by %d and %d", uin, prev, x)
		seen[uin] = x
	}
}

func (s *CodecSuite) TestSequentialIdsAreNotSequential() {
	a := s.codec.Encode(1000)
	b := s.codec.Encode(1001)
	s.NotEqual(a, b)
	s.NotEqual(a[:6], b[:6], "neighbouring ids should not share a long prefix")
}

func (s *CodecSuite) TestKeyChangesMapping() {
	other, err := New([]byte("fedcba9876543210fedcba9876543210"))
	s.Require().NoError(err)
	s.NotEqual(s.codec.Encode(42), other.Encode(42))
}

func (s *CodecSuite) TestDecodeRejectsMalformed() {
	for _, uin := range []string{"", "123", "12345678901", "12345abcde", "-123456789", "4294967296", "9999999999", " 123456789"} {
		_, err := s.codec.Decode(uin)
		s.True(dErrors.HasCode(err, dErrors.CodeDomain), "uin %q", uin)
	}
}

func (s *CodecSuite) TestEncodeIntRange() {
	_, err := s.codec.EncodeInt(-1)
	s.True(dErrors.HasCode(err, dErrors.CodeDomain))

	_, err = s.codec.EncodeInt(math.MaxUint32 + 1)
	s.True(dErrors.HasCode(err, dErrors.CodeDomain))

	uin, err := s.codec.EncodeInt(math.MaxUint32)
	s.Require().NoError(err)
	s.Equal(s.codec.Encode(math.MaxUint32), uin)
}

func TestNewRequiresExactKeySize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := New(make([]byte, n))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration), "key size %d", n)
	}
}
