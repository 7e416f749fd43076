package badger

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/agrikg/core"
)

// Key prefixes for different data types
const (
	spoPrefix = "spo:"
	posPrefix = "pos:"
	ospPrefix = "osp:"
	runPrefix = "run:"
	runIDSeq  = "runseq"

	hashSize = 8
)

// termHash is the fixed-width index component for a term.
type termHash [hashSize]byte

// hashTerm hashes the canonical form of a term with BLAKE2b.
func hashTerm(t core.Term) termHash {
	h, _ := blake2b.New(hashSize, nil)
	h.Write([]byte(t.Key()))
	var out termHash
	copy(out[:], h.Sum(nil))
	return out
}

// composeKey concatenates a prefix and term hashes.
func composeKey(prefix string, hashes ...termHash) []byte {
	buf := make([]byte, len(prefix)+len(hashes)*hashSize)
	offset := copy(buf, prefix)
	for _, h := range hashes {
		offset += copy(buf[offset:], h[:])
	}
	return buf
}

type tripleHashes struct {
	s, p, o termHash
}

func hashTriple(t core.Triple) tripleHashes {
	return tripleHashes{s: hashTerm(t.Subject), p: hashTerm(t.Predicate), o: hashTerm(t.Object)}
}

// spoKey generates the primary key for a triple.
// Format: spo:h(s)h(p)h(o)
func (h tripleHashes) spoKey() []byte {
	return composeKey(spoPrefix, h.s, h.p, h.o)
}

// Format: pos:h(p)h(o)h(s)
func (h tripleHashes) posKey() []byte {
	return composeKey(posPrefix, h.p, h.o, h.s)
}

// Format: osp:h(o)h(s)h(p)
func (h tripleHashes) ospKey() []byte {
	return composeKey(ospPrefix, h.o, h.s, h.p)
}

// spoKeyFromIndex converts a pos or osp index key into the primary key.
func spoKeyFromIndex(key []byte) []byte {
	prefix := string(key[:len(spoPrefix)])
	body := key[len(spoPrefix):]
	if len(body) != 3*hashSize {
		return nil
	}
	var a, b, c termHash
	copy(a[:], body[0:hashSize])
	copy(b[:], body[hashSize:2*hashSize])
	copy(c[:], body[2*hashSize:])
	switch prefix {
	case posPrefix: // p o s
		return composeKey(spoPrefix, c, a, b)
	case ospPrefix: // o s p
		return composeKey(spoPrefix, b, c, a)
	default:
		return composeKey(spoPrefix, a, b, c)
	}
}

// makeRunKey generates a key for a taxonomy run by ID.
// BigEndian keeps runs sorted by ID.
func makeRunKey(id core.ID) []byte {
	buf := make([]byte, len(runPrefix)+8)
	offset := copy(buf, runPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
