// Package wire implements the byte-exact binary framing described in §4.2:
// a one-byte message-type tag, little-endian multi-byte integers, raw
// 16-byte ids, and zero-padded fixed-width UTF-8 strings. Every encoder
// returns a freshly allocated buffer sized exactly to the frame length;
// every decoder is offset-based so a client with no shared Go types can
// still parse a frame by field offset, per the wire codec's design intent.
package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
	"github.com/darxtarr/txxt/internal/world"
)

// Message type tags (§4.2). The S→C event tags are defined on world.EventKind
// and reused here rather than duplicated.
const (
	TagSnapshot EventTag = 0x01
	// 0x02..0x07 are world.EventTaskCreated .. world.EventTaskDeleted.

	TagCreateTask      CommandTag = 0x10
	TagScheduleTask    CommandTag = 0x11
	TagMoveTask        CommandTag = 0x12
	TagUnscheduleTask  CommandTag = 0x13
	TagCompleteTask    CommandTag = 0x14
	TagDeleteTask      CommandTag = 0x15
	TagError           EventTag   = 0xFF
)

// EventTag and CommandTag are both just the one-byte leading tag; they're
// distinguished only to keep S→C and C→S tag spaces from being mixed up at
// call sites.
type EventTag byte
type CommandTag byte

const (
	taskRecordSize    = 192
	serviceRecordSize = 80
	titleFieldSize    = 128
	nameFieldSize     = 64
)

// WireError is the decoder error taxonomy of §4.2's decoder contract.
type WireError struct {
	Kind  WireErrorKind
	Field string
}

type WireErrorKind int

const (
	TooShort WireErrorKind = iota
	UnknownMessage
	InvalidField
	InvalidUtf8
)

func (e *WireError) Error() string {
	switch e.Kind {
	case TooShort:
		return "wire: frame too short"
	case UnknownMessage:
		return "wire: unknown message tag"
	case InvalidField:
		return "wire: invalid field: " + e.Field
	case InvalidUtf8:
		return "wire: invalid utf-8 in " + e.Field
	default:
		return "wire: error"
	}
}

func errTooShort() error             { return &WireError{Kind: TooShort} }
func errUnknownMessage() error        { return &WireError{Kind: UnknownMessage} }
func errInvalidField(name string) error { return &WireError{Kind: InvalidField, Field: name} }
func errInvalidUtf8(name string) error  { return &WireError{Kind: InvalidUtf8, Field: name} }

// --- fixed-width string helpers ---

// putFixedString writes s into dst, zero-padded, truncating at the byte
// boundary if s is longer than dst (§4.2 encoder contract: no UTF-8
// re-alignment on truncation).
func putFixedString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// trimFixedString strips trailing zero bytes and validates UTF-8.
func trimFixedString(src []byte, field string) (string, error) {
	end := len(src)
	for end > 0 && src[end-1] == 0 {
		end--
	}
	s := src[:end]
	if !utf8.Valid(s) {
		return "", errInvalidUtf8(field)
	}
	return string(s), nil
}

// --- Task record (192 bytes) ---

// EncodeTaskRecord writes the fixed-stride Task record of §4.2.
func EncodeTaskRecord(t *grid.Task) []byte {
	buf := make([]byte, taskRecordSize)
	idBytes, _ := t.ID.MarshalBinary()
	copy(buf[0:16], idBytes)
	buf[16] = byte(t.Status)
	buf[17] = byte(t.Priority)

	date, startTime, duration := grid.UnscheduledDate, uint16(0), uint16(0)
	if t.Schedule != nil {
		date, startTime, duration = t.Schedule.Date, t.Schedule.StartTime, t.Schedule.Duration
	}
	binary.LittleEndian.PutUint16(buf[18:20], date)
	binary.LittleEndian.PutUint16(buf[20:22], startTime)
	binary.LittleEndian.PutUint16(buf[22:24], duration)

	svcBytes, _ := t.ServiceID.MarshalBinary()
	copy(buf[24:40], svcBytes)
	assignedBytes, _ := t.AssignedTo.MarshalBinary()
	copy(buf[40:56], assignedBytes)

	putFixedString(buf[56:184], t.Title)
	// [184:192) reserved, left zero.
	return buf
}

// DecodeTaskRecord parses a 192-byte Task record.
func DecodeTaskRecord(buf []byte) (*grid.Task, error) {
	if len(buf) < taskRecordSize {
		return nil, errTooShort()
	}

	id, err := uuid.FromBytes(buf[0:16])
	if err != nil {
		return nil, errInvalidField("id")
	}
	status := grid.Status(buf[16])
	if !status.Valid() {
		return nil, errInvalidField("status")
	}
	priority := grid.Priority(buf[17])
	if !priority.Valid() {
		return nil, errInvalidField("priority")
	}

	date := binary.LittleEndian.Uint16(buf[18:20])
	startTime := binary.LittleEndian.Uint16(buf[20:22])
	duration := binary.LittleEndian.Uint16(buf[22:24])

	serviceID, err := uuid.FromBytes(buf[24:40])
	if err != nil {
		return nil, errInvalidField("service_id")
	}
	assignedTo, err := uuid.FromBytes(buf[40:56])
	if err != nil {
		return nil, errInvalidField("assigned_to")
	}

	title, err := trimFixedString(buf[56:184], "title")
	if err != nil {
		return nil, err
	}

	task := &grid.Task{
		ID:         id,
		Title:      title,
		Status:     status,
		Priority:   priority,
		ServiceID:  serviceID,
		AssignedTo: assignedTo,
	}
	if date != grid.UnscheduledDate {
		task.Schedule = &grid.Schedule{Date: date, StartTime: startTime, Duration: duration}
	}
	return task, nil
}

// --- Service record (80 bytes) ---

// EncodeServiceRecord writes the fixed-stride Service record of §4.2.
func EncodeServiceRecord(s *grid.Service) []byte {
	buf := make([]byte, serviceRecordSize)
	idBytes, _ := s.ID.MarshalBinary()
	copy(buf[0:16], idBytes)
	putFixedString(buf[16:80], s.Name)
	return buf
}

// DecodeServiceRecord parses an 80-byte Service record.
func DecodeServiceRecord(buf []byte) (*grid.Service, error) {
	if len(buf) < serviceRecordSize {
		return nil, errTooShort()
	}
	id, err := uuid.FromBytes(buf[0:16])
	if err != nil {
		return nil, errInvalidField("id")
	}
	name, err := trimFixedString(buf[16:80], "name")
	if err != nil {
		return nil, err
	}
	return &grid.Service{ID: id, Name: name}, nil
}

// --- Snapshot frame ---

// EncodeSnapshot builds the Snapshot frame of §4.2: tag, revision,
// task_count, service_count, then the task records followed by the
// service records.
func EncodeSnapshot(revision uint64, tasks []*grid.Task, services []*grid.Service) []byte {
	size := 17 + len(tasks)*taskRecordSize + len(services)*serviceRecordSize
	buf := make([]byte, size)
	buf[0] = byte(TagSnapshot)
	binary.LittleEndian.PutUint64(buf[1:9], revision)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(len(tasks)))
	binary.LittleEndian.PutUint32(buf[13:17], uint32(len(services)))

	off := 17
	for _, t := range tasks {
		copy(buf[off:off+taskRecordSize], EncodeTaskRecord(t))
		off += taskRecordSize
	}
	for _, s := range services {
		copy(buf[off:off+serviceRecordSize], EncodeServiceRecord(s))
		off += serviceRecordSize
	}
	return buf
}

// Snapshot is the decoded form of a Snapshot frame.
type Snapshot struct {
	Revision uint64
	Tasks    []*grid.Task
	Services []*grid.Service
}

// DecodeSnapshot parses a Snapshot frame, including the leading tag byte.
func DecodeSnapshot(buf []byte) (*Snapshot, error) {
	if len(buf) < 17 {
		return nil, errTooShort()
	}
	if EventTag(buf[0]) != TagSnapshot {
		return nil, errUnknownMessage()
	}
	revision := binary.LittleEndian.Uint64(buf[1:9])
	taskCount := binary.LittleEndian.Uint32(buf[9:13])
	serviceCount := binary.LittleEndian.Uint32(buf[13:17])

	want := 17 + int(taskCount)*taskRecordSize + int(serviceCount)*serviceRecordSize
	if len(buf) < want {
		return nil, errTooShort()
	}

	off := 17
	tasks := make([]*grid.Task, 0, taskCount)
	for i := uint32(0); i < taskCount; i++ {
		t, err := DecodeTaskRecord(buf[off : off+taskRecordSize])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
		off += taskRecordSize
	}
	services := make([]*grid.Service, 0, serviceCount)
	for i := uint32(0); i < serviceCount; i++ {
		s, err := DecodeServiceRecord(buf[off : off+serviceRecordSize])
		if err != nil {
			return nil, err
		}
		services = append(services, s)
		off += serviceRecordSize
	}

	return &Snapshot{Revision: revision, Tasks: tasks, Services: services}, nil
}

// --- Event frames ---

// EncodeEvent builds the S→C frame for a committed world.Event.
func EncodeEvent(ev world.Event) []byte {
	switch ev.Kind {
	case world.EventTaskCreated:
		buf := make([]byte, 9+taskRecordSize)
		buf[0] = byte(ev.Kind)
		binary.LittleEndian.PutUint64(buf[1:9], ev.Revision)
		copy(buf[9:9+taskRecordSize], EncodeTaskRecord(ev.Task))
		return buf

	case world.EventTaskScheduled, world.EventTaskMoved:
		buf := make([]byte, 31)
		writeEventHeader(buf, ev)
		binary.LittleEndian.PutUint16(buf[25:27], ev.Schedule.Date)
		binary.LittleEndian.PutUint16(buf[27:29], ev.Schedule.StartTime)
		binary.LittleEndian.PutUint16(buf[29:31], ev.Schedule.Duration)
		return buf

	default: // TaskUnscheduled, TaskCompleted, TaskDeleted: header only
		buf := make([]byte, 25)
		writeEventHeader(buf, ev)
		return buf
	}
}

func writeEventHeader(buf []byte, ev world.Event) {
	buf[0] = byte(ev.Kind)
	binary.LittleEndian.PutUint64(buf[1:9], ev.Revision)
	idBytes, _ := ev.TaskID.MarshalBinary()
	copy(buf[9:25], idBytes)
}

// DecodeEvent parses any S→C event frame.
func DecodeEvent(buf []byte) (world.Event, error) {
	if len(buf) < 1 {
		return world.Event{}, errTooShort()
	}
	kind := world.EventKind(buf[0])

	if kind == world.EventTaskCreated {
		if len(buf) < 9+taskRecordSize {
			return world.Event{}, errTooShort()
		}
		revision := binary.LittleEndian.Uint64(buf[1:9])
		task, err := DecodeTaskRecord(buf[9 : 9+taskRecordSize])
		if err != nil {
			return world.Event{}, err
		}
		return world.Event{Kind: kind, Revision: revision, TaskID: task.ID, Task: task}, nil
	}

	if len(buf) < 25 {
		return world.Event{}, errTooShort()
	}
	revision := binary.LittleEndian.Uint64(buf[1:9])
	taskID, err := uuid.FromBytes(buf[9:25])
	if err != nil {
		return world.Event{}, errInvalidField("task_id")
	}

	ev := world.Event{Kind: kind, Revision: revision, TaskID: taskID}

	switch kind {
	case world.EventTaskScheduled, world.EventTaskMoved:
		if len(buf) < 31 {
			return world.Event{}, errTooShort()
		}
		ev.Schedule = &grid.Schedule{
			Date:      binary.LittleEndian.Uint16(buf[25:27]),
			StartTime: binary.LittleEndian.Uint16(buf[27:29]),
			Duration:  binary.LittleEndian.Uint16(buf[29:31]),
		}
	case world.EventTaskUnscheduled, world.EventTaskCompleted, world.EventTaskDeleted:
		// header only
	default:
		return world.Event{}, errUnknownMessage()
	}

	return ev, nil
}

// EncodeErrorFrame builds the 0xFF Error frame sent to the offending client
// after a rejected command. Layout: tag byte then the error message as
// UTF-8, unpadded (this frame has no fixed stride).
func EncodeErrorFrame(message string) []byte {
	buf := make([]byte, 1+len(message))
	buf[0] = byte(TagError)
	copy(buf[1:], message)
	return buf
}
