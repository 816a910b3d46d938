package store

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"go.etcd.io/bbolt"

	"github.com/darxtarr/txxt/internal/grid"
)

// encodeUserRecord packs a User as length-prefixed fields (§4.3: "opaque
// encoded User"), unlike the fixed-stride Task/Service records which must
// match the wire layout exactly. Users never cross the wire, so there's no
// byte-exactness requirement here — just a stable on-disk format.
//
// Layout: [0:16) id, [16:20) username length (u32 LE), username bytes,
// [..+4) password hash length (u32 LE), password hash bytes.
func encodeUserRecord(u *grid.User) []byte {
	idBytes, _ := u.ID.MarshalBinary()
	buf := make([]byte, 0, 16+4+len(u.Username)+4+len(u.PasswordHash))
	buf = append(buf, idBytes...)
	buf = appendLengthPrefixed(buf, u.Username)
	buf = appendLengthPrefixed(buf, u.PasswordHash)
	return buf
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	lenBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBytes, uint32(len(s)))
	buf = append(buf, lenBytes...)
	return append(buf, s...)
}

func decodeUserRecord(buf []byte) (*grid.User, error) {
	if len(buf) < 20 {
		return nil, fmt.Errorf("user record: too short")
	}
	id, err := uuid.FromBytes(buf[0:16])
	if err != nil {
		return nil, fmt.Errorf("user record: id: %w", err)
	}

	username, rest, err := readLengthPrefixed(buf[16:])
	if err != nil {
		return nil, fmt.Errorf("user record: username: %w", err)
	}
	passwordHash, _, err := readLengthPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("user record: password hash: %w", err)
	}

	return &grid.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func readLengthPrefixed(buf []byte) (value string, rest []byte, err error) {
	if len(buf) < 4 {
		return "", nil, fmt.Errorf("too short for length prefix")
	}
	n := binary.LittleEndian.Uint32(buf[0:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", nil, fmt.Errorf("too short for declared length %d", n)
	}
	return string(buf[:n]), buf[n:], nil
}

func putUser(tx *bbolt.Tx, u *grid.User) error {
	idBytes, _ := u.ID.MarshalBinary()
	return tx.Bucket(bucketUsers).Put(idBytes, encodeUserRecord(u))
}
