package fnvhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFNV1a32EmptyString(t *testing.T) {
	require.Equal(t, OffsetBasis32, FNV1a32(""))
	require.Equal(t, uint32(0x811C9DC5), FNV1a32(""))
}

func TestFNV1a32CaseInsensitive(t *testing.T) {
	require.Equal(t, FNV1a32("MaterialOverride"), FNV1a32("materialoverride"))
}

func TestFNV1a32KnownVector(t *testing.T) {
	// §8 E3: fixed literal the spec asks implementations to verify against.
	require.Equal(t, uint32(0x4F5A69E4), FNV1a32("MaterialOverride"))
	require.Equal(t, uint32(0x4F5A69E4), FNV1a32("materialoverride"))
}

func TestHexRoundTrip(t *testing.T) {
	require.Equal(t, "811c9dc5", HexU32(OffsetBasis32))
	require.Len(t, HexU32(0xDEADBEEF), 8)
	require.Len(t, HexU64(0xDEADBEEFCAFEBABE), 16)
}

func TestXXH64CaseInsensitive(t *testing.T) {
	require.Equal(t, XXH64("Assets/Foo.dds"), XXH64("assets/foo.dds"))
	require.NotEqual(t, XXH64("a"), XXH64("b"))
}
