// Copyright 2019 The Veil Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vaultserver

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	gopath "path"
	"strings"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/btree"
	"golang.org/x/crypto/scrypt"

	"github.com/veilfs/veil/pkg/log"
	"github.com/veilfs/veil/pkg/userfs"
)

// A vault is a single-volume encrypted filesystem delegate: entry metadata
// and sealed contents live in a bolt database, an in-memory btree keeps the
// namespace ordered for listings. Contents are sealed with AES-GCM under a
// key derived from the passphrase with scrypt.
type vault struct {
	mu     sync.RWMutex
	db     *bolt.DB
	index  *btree.BTree
	aead   cipher.AEAD
	logger *log.Logger
}

var (
	contentsBucket = []byte("contents")
	metaBucket     = []byte("meta")
	xattrBucket    = []byte("xattr")

	// saltKey cannot collide with entry paths, which all begin with '/'.
	saltKey = []byte("\x00salt")
)

type entryMeta struct {
	Dir     bool      `json:"dir"`
	Mode    uint32    `json:"mode"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	Created time.Time `json:"created"`
}

type indexEntry struct {
	path string
}

func (e *indexEntry) Less(than btree.Item) bool {
	return e.path < than.(*indexEntry).path
}

const scryptN, scryptR, scryptP = 1 << 15, 8, 1

// openVault opens (or initializes) the database at dbPath and derives the
// sealing key from passphrase. The namespace index is rebuilt from the
// metadata bucket.
func openVault(dbPath, passphrase string, logger *log.Logger) (*vault, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	v := &vault{
		db:     db,
		index:  btree.New(8),
		logger: logger,
	}

	var salt []byte
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{contentsBucket, metaBucket, xattrBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		meta := tx.Bucket(metaBucket)
		salt = append([]byte(nil), meta.Get(saltKey)...)
		if len(salt) == 0 {
			salt = make([]byte, 16)
			if _, err := rand.Read(salt); err != nil {
				return err
			}
			if err := meta.Put(saltKey, salt); err != nil {
				return err
			}
		}

		if meta.Get([]byte("/")) == nil {
			root := entryMeta{Dir: true, Mode: 0755, ModTime: time.Now(), Created: time.Now()}
			encoded, err := json.Marshal(root)
			if err != nil {
				return err
			}
			if err := meta.Put([]byte("/"), encoded); err != nil {
				return err
			}
		}

		c := meta.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if k[0] != '/' {
				continue
			}
			v.index.ReplaceOrInsert(&indexEntry{path: string(k)})
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		db.Close()
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		db.Close()
		return nil, err
	}
	v.aead, err = cipher.NewGCM(block)
	if err != nil {
		db.Close()
		return nil, err
	}
	return v, nil
}

func (v *vault) Close() error {
	return v.db.Close()
}

func (v *vault) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return v.aead.Seal(nonce, nonce, plain, nil), nil
}

func (v *vault) unseal(blob []byte) ([]byte, error) {
	n := v.aead.NonceSize()
	if len(blob) < n {
		return nil, errors.New("sealed blob too short")
	}
	return v.aead.Open(nil, blob[:n], blob[n:], nil)
}

func (v *vault) getMeta(tx *bolt.Tx, path string) (entryMeta, bool) {
	raw := tx.Bucket(metaBucket).Get([]byte(path))
	if raw == nil {
		return entryMeta{}, false
	}
	var m entryMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return entryMeta{}, false
	}
	return m, true
}

func (v *vault) putMeta(tx *bolt.Tx, path string, m entryMeta) error {
	encoded, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return tx.Bucket(metaBucket).Put([]byte(path), encoded)
}

// children returns the names directly under dir, in order.
func (v *vault) children(dir string) []string {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	var names []string
	v.index.AscendGreaterOrEqual(&indexEntry{path: prefix}, func(i btree.Item) bool {
		p := i.(*indexEntry).path
		if p == dir || !strings.HasPrefix(p, prefix) {
			return p == dir // the pivot may hit dir itself when dir == "/"
		}
		rest := p[len(prefix):]
		if !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
		return true
	})
	return names
}

func (v *vault) WillMount() {
	v.logger.Info("vault mounting")
}

func (v *vault) WillUnmount() {
	v.logger.Info("vault unmounting")
}

func (v *vault) ContentsOfDirectory(path string) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var names []string
	err := v.db.View(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok || !m.Dir {
			return userfs.ENOENT
		}
		names = v.children(path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (v *vault) AttributesOfItem(path string) (userfs.Attributes, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var attrs userfs.Attributes
	err := v.db.View(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok {
			return nil // absent: the adapter answers ENOENT
		}
		typ := userfs.TypeRegular
		if m.Dir {
			typ = userfs.TypeDirectory
		}
		attrs = userfs.Attributes{
			userfs.AttrType:             typ,
			userfs.AttrPermissions:      m.Mode,
			userfs.AttrSize:             m.Size,
			userfs.AttrModificationDate: m.ModTime,
			userfs.AttrCreationDate:     m.Created,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attrs, nil
}

func (v *vault) Contents(path string) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var plain []byte
	err := v.db.View(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok || m.Dir {
			return nil
		}
		blob := tx.Bucket(contentsBucket).Get([]byte(path))
		if blob == nil {
			plain = []byte{}
			return nil
		}
		var err error
		plain, err = v.unseal(blob)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plain, nil
}

func (v *vault) CreateFile(path string, attrs userfs.Attributes) (interface{}, error) {
	return nil, v.createEntry(path, attrs, false)
}

func (v *vault) CreateDirectory(path string, attrs userfs.Attributes) error {
	return v.createEntry(path, attrs, true)
}

func (v *vault) createEntry(path string, attrs userfs.Attributes, dir bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.db.Update(func(tx *bolt.Tx) error {
		if _, ok := v.getMeta(tx, path); ok {
			return userfs.EEXIST
		}
		if parent, ok := v.getMeta(tx, gopath.Dir(path)); !ok || !parent.Dir {
			return userfs.ENOENT
		}

		mode := uint32(0644)
		if dir {
			mode = 0755
		}
		if m, ok := attrs.Uint32(userfs.AttrPermissions); ok {
			mode = m
		}
		m := entryMeta{Dir: dir, Mode: mode, ModTime: time.Now(), Created: time.Now()}
		if err := v.putMeta(tx, path, m); err != nil {
			return err
		}
		v.index.ReplaceOrInsert(&indexEntry{path: path})
		return nil
	})
}

func (v *vault) WriteFile(path string, handle interface{}, data []byte, offset int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.db.Update(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok || m.Dir {
			return userfs.ENOENT
		}

		plain, err := v.loadPlain(tx, path)
		if err != nil {
			return err
		}
		if need := offset + int64(len(data)); int64(len(plain)) < need {
			grown := make([]byte, need)
			copy(grown, plain)
			plain = grown
		}
		copy(plain[offset:], data)

		if err := v.storePlain(tx, path, plain); err != nil {
			return err
		}
		m.Size = int64(len(plain))
		m.ModTime = time.Now()
		return v.putMeta(tx, path, m)
	})
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (v *vault) TruncateFile(path string, handle interface{}, size int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.db.Update(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok || m.Dir {
			return userfs.ENOENT
		}

		plain, err := v.loadPlain(tx, path)
		if err != nil {
			return err
		}
		resized := make([]byte, size)
		copy(resized, plain)

		if err := v.storePlain(tx, path, resized); err != nil {
			return err
		}
		m.Size = size
		m.ModTime = time.Now()
		return v.putMeta(tx, path, m)
	})
}

func (v *vault) loadPlain(tx *bolt.Tx, path string) ([]byte, error) {
	blob := tx.Bucket(contentsBucket).Get([]byte(path))
	if blob == nil {
		return nil, nil
	}
	return v.unseal(blob)
}

func (v *vault) storePlain(tx *bolt.Tx, path string, plain []byte) error {
	sealed, err := v.seal(plain)
	if err != nil {
		return err
	}
	return tx.Bucket(contentsBucket).Put([]byte(path), sealed)
}

func (v *vault) RemoveItem(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.db.Update(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok {
			return userfs.ENOENT
		}
		if m.Dir && len(v.children(path)) > 0 {
			return userfs.EACCES
		}

		if err := tx.Bucket(metaBucket).Delete([]byte(path)); err != nil {
			return err
		}
		if err := tx.Bucket(contentsBucket).Delete([]byte(path)); err != nil {
			return err
		}
		if err := v.dropXattrs(tx, path); err != nil {
			return err
		}
		v.index.Delete(&indexEntry{path: path})
		return nil
	})
}

func (v *vault) MoveItem(source, target string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.db.Update(func(tx *bolt.Tx) error {
		if _, ok := v.getMeta(tx, source); !ok {
			return userfs.ENOENT
		}
		if parent, ok := v.getMeta(tx, gopath.Dir(target)); !ok || !parent.Dir {
			return userfs.ENOENT
		}

		// The subtree moves key by key; the index keeps listings honest.
		var moved []string
		prefix := source + "/"
		v.index.AscendGreaterOrEqual(&indexEntry{path: source}, func(i btree.Item) bool {
			p := i.(*indexEntry).path
			if p != source && !strings.HasPrefix(p, prefix) {
				return false
			}
			moved = append(moved, p)
			return true
		})

		for _, p := range moved {
			dst := target + p[len(source):]
			for _, bucket := range [][]byte{metaBucket, contentsBucket} {
				b := tx.Bucket(bucket)
				if raw := b.Get([]byte(p)); raw != nil {
					if err := b.Put([]byte(dst), raw); err != nil {
						return err
					}
					if err := b.Delete([]byte(p)); err != nil {
						return err
					}
				}
			}
			v.index.Delete(&indexEntry{path: p})
			v.index.ReplaceOrInsert(&indexEntry{path: dst})
		}
		return nil
	})
}

func (v *vault) SetAttributes(path string, attrs userfs.Attributes) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.db.Update(func(tx *bolt.Tx) error {
		m, ok := v.getMeta(tx, path)
		if !ok {
			return userfs.ENOENT
		}
		if mode, ok := attrs.Uint32(userfs.AttrPermissions); ok {
			m.Mode = mode
		}
		if mtime, ok := attrs.Time(userfs.AttrModificationDate); ok {
			m.ModTime = mtime
		}
		if size, ok := attrs.Int64(userfs.AttrSize); ok {
			m.Size = size
		}
		return v.putMeta(tx, path, m)
	})
}

func xattrKey(path, name string) []byte {
	return []byte(path + "\x00" + name)
}

func (v *vault) ExtendedAttributesOfItem(path string) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	names := []string{}
	err := v.db.View(func(tx *bolt.Tx) error {
		prefix := []byte(path + "\x00")
		c := tx.Bucket(xattrBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			names = append(names, string(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (v *vault) ValueOfExtendedAttribute(path, name string) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var value []byte
	err := v.db.View(func(tx *bolt.Tx) error {
		value = append([]byte(nil), tx.Bucket(xattrBucket).Get(xattrKey(path, name))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, nil
	}
	return value, nil
}

func (v *vault) SetExtendedAttribute(path, name string, value []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.db.Update(func(tx *bolt.Tx) error {
		if _, ok := v.getMeta(tx, path); !ok {
			return userfs.ENOENT
		}
		return tx.Bucket(xattrBucket).Put(xattrKey(path, name), value)
	})
}

func (v *vault) dropXattrs(tx *bolt.Tx, path string) error {
	prefix := []byte(path + "\x00")
	c := tx.Bucket(xattrBucket).Cursor()
	for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}
