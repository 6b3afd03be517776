package bimap

import (
	"testing"

	"github.com/epiclabs-io/ut"
)

const key = "key"
const value = 42

func TestBiMap_New(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	m := New(map[string]int{key: value})
	t.Equals(1, m.Size())

	v, ok := m.Get(key)
	t.Assert(ok, "Preloaded key should exist")
	t.Equals(value, v)
}

func TestBiMap_Insert(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	m := New(map[string]int{})
	m.Insert(key, value)

	v, ok := m.Get(key)
	t.Assert(ok, "Inserted key should exist")
	t.Equals(value, v)

	k, ok := m.GetInverse(value)
	t.Assert(ok, "Inserted value should resolve back to the key")
	t.Equals(key, k)

	// rebinding the same key must drop the stale inverse entry
	m.Insert(key, 7)
	t.Equals(1, m.Size())
	t.Assert(!m.ExistsInverse(value), "Old value should be gone after rebind")
}

func TestBiMap_Exists(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	m := New(map[string]int{key: value})
	t.Assert(!m.Exists("ARBITRARY_KEY"), "Key should not exist")
	t.Assert(m.Exists(key), "Inserted key should exist")
	t.Assert(!m.ExistsInverse(1234), "Value should not exist")
	t.Assert(m.ExistsInverse(value), "Inserted value should exist")
}

func TestBiMap_Get(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	m := New(map[string]int{key: value})

	v, ok := m.Get(key)
	t.Assert(ok, "It should return true")
	t.Equals(value, v)

	v, ok = m.Get("missing")
	t.Assert(!ok, "It should return false")
	t.Equals(0, v)

	k, ok := m.GetInverse(value)
	t.Assert(ok, "It should return true")
	t.Equals(key, k)

	k, ok = m.GetInverse(1234)
	t.Assert(!ok, "It should return false")
	t.Equals("", k)
}

func TestBiMap_Delete(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	m := New(map[string]int{key: value, "dummy": 7})
	t.Equals(2, m.Size())

	m.Delete("dummy")
	t.Equals(1, m.Size())
	t.Assert(!m.ExistsInverse(7), "Inverse entry should be removed too")

	m.Delete("dummy")
	t.Equals(1, m.Size())

	m.DeleteInverse(value)
	t.Equals(0, m.Size())
	t.Assert(!m.Exists(key), "Forward entry should be removed too")

	m.DeleteInverse(value)
	t.Equals(0, m.Size())
}

func TestBiMap_Maps(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	m := New(map[string]int{key: value})

	t.Equals(map[string]int{key: value}, m.GetForwardMap())
	t.Equals(map[int]string{value: key}, m.GetInverseMap())

	// returned maps are copies
	fwd := m.GetForwardMap()
	fwd["other"] = 1
	t.Equals(1, m.Size())
}
