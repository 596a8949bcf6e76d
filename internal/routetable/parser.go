package routetable

import (
	"errors"
	"strconv"
	"strings"
)

// ErrRecordCountMismatch indicates an `end` record's declared count did not
// match the number of records actually accepted; per spec §4.5 the
// in-progress build must be discarded wholesale in this case.
var ErrRecordCountMismatch = errors.New("routetable: record count mismatch at end")

// ErrMalformed indicates a single line could not be parsed; the caller
// should count it as rejected but may continue parsing the batch — a
// parse error on one line never fails the process (spec §4.4 error design).
var ErrMalformed = errors.New("routetable: malformed record")

// BuildState tracks an in-progress newrt/updatert batch across successive
// lines, allowing the RTC thread to feed it partial, newline-delimited text
// as it arrives off the wire.
type BuildState struct {
	table     *Table
	active    bool // true between start and end
	accepted  int
	tableID   string
	meidBatch bool
}

// NewBuildState creates an idle builder. Apply is a no-op until a
// newrt|start or updatert|start line is seen.
func NewBuildState() *BuildState { return &BuildState{} }

// Apply parses and applies a single textual record to the in-progress
// build, returning the completed Table once an `end` record validates, or
// nil while the batch is still in progress. Blank lines and lines whose
// first non-whitespace character is '#' are ignored.
func (b *BuildState) Apply(line string, activeForClone *Table) (*Table, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	fields := splitPipe(line)
	if len(fields) == 0 {
		return nil, ErrMalformed
	}
	verb := strings.TrimSpace(fields[0])

	switch verb {
	case "newrt":
		return b.handleStart(fields, nil)
	case "updatert":
		return b.handleStart(fields, activeForClone)
	case "rte":
		return nil, b.applyRTE(fields, true)
	case "mse":
		return nil, b.applyRTE(fields, false)
	case "del":
		return nil, b.applyDel(fields)
	case "meid_map":
		return b.handleMeidMap(fields)
	case "mme_ar":
		return nil, b.applyMmeAr(fields)
	case "mme_del":
		return nil, b.applyMmeDel(fields)
	default:
		return nil, ErrMalformed
	}
}

func (b *BuildState) handleStart(fields []string, clone *Table) (*Table, error) {
	sub := strings.TrimSpace(fields[1])
	switch sub {
	case "start":
		if clone != nil {
			b.table = clone.clone()
		} else {
			b.table = NewBuilder()
		}
		b.active = true
		b.accepted = 0
		return nil, nil
	case "end":
		if !b.active {
			return nil, ErrMalformed
		}
		b.active = false
		declared := -1
		if len(fields) > 2 {
			n, err := strconv.Atoi(strings.TrimSpace(fields[2]))
			if err != nil {
				b.table = nil
				return nil, ErrMalformed
			}
			declared = n
		}
		if declared >= 0 && declared != b.accepted {
			b.table = nil
			return nil, ErrRecordCountMismatch
		}
		t := b.table
		b.table = nil
		return t, nil
	default:
		return nil, ErrMalformed
	}
}

func (b *BuildState) handleMeidMap(fields []string) (*Table, error) {
	if len(fields) < 2 {
		return nil, ErrMalformed
	}
	switch strings.TrimSpace(fields[1]) {
	case "start":
		b.meidBatch = true
		return nil, nil
	case "end":
		b.meidBatch = false
		return nil, nil
	default:
		return nil, ErrMalformed
	}
}

// applyRTE parses `rte|mtype|endpoint-list[|sub_id]` (legacy) or
// `mse|mtype|sub_id|endpoint-list` (preferred).
func (b *BuildState) applyRTE(fields []string, legacy bool) error {
	if b.table == nil {
		return ErrMalformed
	}
	if legacy {
		if len(fields) < 3 {
			return ErrMalformed
		}
		mtype, err := atoi32(fields[1])
		if err != nil {
			return ErrMalformed
		}
		subID := int32(-1)
		if len(fields) > 3 {
			subID, err = atoi32(fields[3])
			if err != nil {
				return ErrMalformed
			}
		}
		groups, err := parseEndpointList(fields[2])
		if err != nil {
			return err
		}
		b.table.PutRTE(mtype, subID, groups)
	} else {
		if len(fields) < 4 {
			return ErrMalformed
		}
		mtype, err := atoi32(fields[1])
		if err != nil {
			return ErrMalformed
		}
		subID, err := atoi32(fields[2])
		if err != nil {
			return ErrMalformed
		}
		groups, err := parseEndpointList(fields[3])
		if err != nil {
			return err
		}
		b.table.PutRTE(mtype, subID, groups)
	}
	b.accepted++
	return nil
}

func (b *BuildState) applyDel(fields []string) error {
	if b.table == nil || len(fields) < 3 {
		return ErrMalformed
	}
	mtype, err := atoi32(fields[1])
	if err != nil {
		return ErrMalformed
	}
	subID, err := atoi32(fields[2])
	if err != nil {
		return ErrMalformed
	}
	b.table.DelRTE(mtype, subID)
	b.accepted++
	return nil
}

func (b *BuildState) applyMmeAr(fields []string) error {
	if b.table == nil || len(fields) < 3 {
		return ErrMalformed
	}
	endpoint := strings.TrimSpace(fields[1])
	meids := strings.Fields(fields[2])
	if len(meids) == 0 {
		return ErrMalformed
	}
	for _, m := range meids {
		b.table.PutMEID(m, endpoint)
	}
	b.accepted++
	return nil
}

func (b *BuildState) applyMmeDel(fields []string) error {
	if b.table == nil || len(fields) < 2 {
		return ErrMalformed
	}
	meids := strings.Fields(fields[1])
	if len(meids) == 0 {
		return ErrMalformed
	}
	for _, m := range meids {
		b.table.DelMEID(m)
	}
	b.accepted++
	return nil
}

// parseEndpointList parses a semicolon-separated list of comma-separated
// endpoint groups into round-robin Groups.
func parseEndpointList(s string) ([]*Group, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMalformed
	}
	groupStrs := strings.Split(s, ";")
	groups := make([]*Group, 0, len(groupStrs))
	for _, gs := range groupStrs {
		gs = strings.TrimSpace(gs)
		if gs == "" {
			continue
		}
		eps := strings.Split(gs, ",")
		cleaned := make([]string, 0, len(eps))
		for _, e := range eps {
			e = strings.TrimSpace(e)
			if e != "" {
				cleaned = append(cleaned, e)
			}
		}
		if len(cleaned) == 0 {
			continue
		}
		groups = append(groups, &Group{Endpoints: cleaned})
	}
	if len(groups) == 0 {
		return nil, ErrMalformed
	}
	return groups, nil
}

func splitPipe(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func atoi32(s string) (int32, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}
