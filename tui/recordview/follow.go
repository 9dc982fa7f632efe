package recordview

import (
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
)

// Follow adapts a typed mirror watch into the type-erased snapshots the Model consumes.
// The returned channel closes when stop is called or the mirror is closed.
func Follow[R records.Record](s *mirror.Synchronizer[R]) (updates <-chan mirror.Snapshot, stop func()) {
	in := s.Watch()
	out := make(chan mirror.Snapshot, 1)

	go func() {
		defer close(out)
		for st := range in {
			items := make([]records.Record, len(st.Items))
			for i, item := range st.Items {
				items[i] = item
			}
			snap := mirror.Snapshot{Loading: st.Loading, Items: items}

			// Latest wins, same as the mirror's own watchers.
			select {
			case out <- snap:
			default:
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}
	}()

	return out, func() { s.Unwatch(in) }
}

// FollowView follows the typed mirror behind v.
func FollowView(v mirror.View) (<-chan mirror.Snapshot, func(), error) {
	switch s := v.(type) {
	case *mirror.Synchronizer[records.ConnectionRecord]:
		updates, stop := Follow(s)
		return updates, stop, nil
	case *mirror.Synchronizer[records.CredentialExchangeRecord]:
		updates, stop := Follow(s)
		return updates, stop, nil
	case *mirror.Synchronizer[records.ProofExchangeRecord]:
		updates, stop := Follow(s)
		return updates, stop, nil
	}
	return nil, nil, errors.UnknownKind(string(v.Kind()))
}
