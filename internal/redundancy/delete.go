// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

// drop is the Deletion Manager (component F)'s mark step. It records id
// as pending deletion and immediately removes its fragment-index entry,
// so no other sequence can probe against a body that is about to
// disappear. id itself is removed from the sequence stores only at the
// next purge, since the underlying store cannot delete keys while a
// caller is enumerating it.
func (e *Engine) drop(id string) error {
	key := []byte(id)
	if err := e.deleted.Replace(key, []byte("1")); err != nil {
		return err
	}
	frag, err := e.fragTable.Fetch(key)
	if err != nil {
		return err
	}
	if frag != nil {
		if err := e.fragIndex.Delete(frag); err != nil {
			return err
		}
	}
	return e.fragTable.Delete(key)
}

// purge is the Deletion Manager's sweep step. It removes every id
// currently marked pending deletion from both sequence stores, then
// clears the marker set. It is called at every phase boundary. A single
// loop over deleted removes each id from both stores, inside nested
// transactions on seqMain and seqStage, the same batching
// cmd/ins/fragment.go uses around its bulk Set calls, since deleted is
// only enumerated (never itself mutated) here.
func (e *Engine) purge() error {
	key, err := e.deleted.FirstKey()
	if err != nil {
		return err
	}
	first := key
	err = e.seqMain.Batch(func() error {
		return e.seqStage.Batch(func() error {
			key := first
			for key != nil {
				next, err := e.deleted.NextKey(key)
				if err != nil {
					return err
				}
				if err := e.seqMain.Delete(key); err != nil {
					return err
				}
				if err := e.seqStage.Delete(key); err != nil {
					return err
				}
				key = next
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return e.deleted.Clear()
}
