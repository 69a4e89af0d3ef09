package env

import (
	"github.com/sirupsen/logrus"

	"github.com/san-kum/spotsim/internal/physics"
)

// JointMap resolves each controller joint slot to a physics joint index.
// Unresolved slots stay in place and read as zero.
type JointMap struct {
	index    [NumJoints]int
	resolved [NumJoints]bool
}

// ResolveJoints matches names against the joints the world reports. Each
// missing name is logged and leaves its slot unresolved without shifting
// the slots after it.
func ResolveJoints(infos []physics.JointInfo, names [NumJoints]string, log *logrus.Entry) JointMap {
	byName := make(map[string]int, len(infos))
	for _, j := range infos {
		byName[j.Name] = j.Index
	}
	var m JointMap
	for slot, name := range names {
		idx, ok := byName[name]
		if !ok {
			if log != nil {
				log.WithField("joint", name).WithField("slot", slot).Warn("joint not found in robot description")
			}
			continue
		}
		m.index[slot] = idx
		m.resolved[slot] = true
	}
	return m
}

// Index returns the physics joint for a slot.
func (m JointMap) Index(slot int) (int, bool) {
	if slot < 0 || slot >= NumJoints || !m.resolved[slot] {
		return 0, false
	}
	return m.index[slot], true
}

// Resolved lists the resolved slots and their physics joint indices.
func (m JointMap) Resolved() (slots, indices []int) {
	for slot := range m.index {
		if m.resolved[slot] {
			slots = append(slots, slot)
			indices = append(indices, m.index[slot])
		}
	}
	return slots, indices
}

func (m JointMap) Count() int {
	n := 0
	for _, ok := range m.resolved {
		if ok {
			n++
		}
	}
	return n
}

// Missing returns the controller names of unresolved slots.
func (m JointMap) Missing() []string {
	var out []string
	for slot, ok := range m.resolved {
		if !ok {
			out = append(out, JointNames[slot])
		}
	}
	return out
}
