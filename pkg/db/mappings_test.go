package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

func getMappingRecord() MappingRecord {
	return MappingRecord{
		Origin:   wire.Address{31: 0xaa},
		Local:    wire.Address{31: 0xbb},
		Name:     "Test Token",
		Symbol:   "TEST",
		Decimals: 18,
	}
}

func openTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestMappingKey(t *testing.T) {
	rec := getMappingRecord()
	expected := "MAP:V1:child:00000000000000000000000000000000000000000000000000000000000000aa"
	assert.Equal(t, expected, string(mappingKey("child", rec.Origin)))
}

func TestMappingRecordMarshalRoundTrip(t *testing.T) {
	rec := getMappingRecord()

	b, err := rec.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalMappingRecord(b)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
}

func TestUnmarshalMappingRecordTruncated(t *testing.T) {
	rec := getMappingRecord()
	b, err := rec.Marshal()
	require.NoError(t, err)

	for _, cut := range []int{0, 16, 32, 63, 65, len(b) - 1} {
		_, err := UnmarshalMappingRecord(b[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestStoreAndGetMapping(t *testing.T) {
	database := openTestDB(t)
	rec := getMappingRecord()

	require.NoError(t, database.StoreMapping("child", &rec))

	got, err := database.GetMapping("child", rec.Origin)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)

	// The same origin on the other side is a separate entry.
	_, err = database.GetMapping("root", rec.Origin)
	require.ErrorIs(t, err, ErrMappingNotFound)
}

func TestDeleteMapping(t *testing.T) {
	database := openTestDB(t)
	rec := getMappingRecord()

	require.NoError(t, database.StoreMapping("child", &rec))
	require.NoError(t, database.DeleteMapping("child", rec.Origin))

	_, err := database.GetMapping("child", rec.Origin)
	require.ErrorIs(t, err, ErrMappingNotFound)
}

func TestGetMappingsReturnsAllForSide(t *testing.T) {
	database := openTestDB(t)

	first := getMappingRecord()
	second := getMappingRecord()
	second.Origin = wire.Address{31: 0xcc}
	second.Symbol = "OTHER"
	other := getMappingRecord()
	other.Origin = wire.Address{31: 0xdd}

	require.NoError(t, database.StoreMapping("child", &first))
	require.NoError(t, database.StoreMapping("child", &second))
	require.NoError(t, database.StoreMapping("root", &other))

	records, err := database.GetMappings("child")
	require.NoError(t, err)
	require.Len(t, records, 2)

	origins := []wire.Address{records[0].Origin, records[1].Origin}
	assert.Contains(t, origins, first.Origin)
	assert.Contains(t, origins, second.Origin)
}
