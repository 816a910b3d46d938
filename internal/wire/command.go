package wire

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
	"github.com/darxtarr/txxt/internal/world"
)

// DecodeCommand is unpack_command of §4.2: decode a C→S frame into a
// world.Command, or a *WireError describing why it couldn't be decoded.
func DecodeCommand(buf []byte) (world.Command, error) {
	if len(buf) < 1 {
		return nil, errTooShort()
	}

	switch CommandTag(buf[0]) {
	case TagCreateTask:
		return decodeCreateTask(buf)
	case TagScheduleTask:
		return decodeScheduleOrMove(buf, false)
	case TagMoveTask:
		return decodeScheduleOrMove(buf, true)
	case TagUnscheduleTask:
		id, err := decodeTaskIDOnly(buf)
		if err != nil {
			return nil, err
		}
		return world.UnscheduleTask{TaskID: id}, nil
	case TagCompleteTask:
		id, err := decodeTaskIDOnly(buf)
		if err != nil {
			return nil, err
		}
		return world.CompleteTask{TaskID: id}, nil
	case TagDeleteTask:
		id, err := decodeTaskIDOnly(buf)
		if err != nil {
			return nil, err
		}
		return world.DeleteTask{TaskID: id}, nil
	default:
		return nil, errUnknownMessage()
	}
}

func decodeCreateTask(buf []byte) (world.Command, error) {
	if len(buf) < 40 {
		return nil, errTooShort()
	}
	priority := grid.Priority(buf[1])
	if !priority.Valid() {
		return nil, errInvalidField("priority")
	}
	serviceID, err := uuid.FromBytes(buf[2:18])
	if err != nil {
		return nil, errInvalidField("service_id")
	}
	assignedTo, err := uuid.FromBytes(buf[18:34])
	if err != nil {
		return nil, errInvalidField("assigned_to")
	}
	date := binary.LittleEndian.Uint16(buf[34:36])
	startTime := binary.LittleEndian.Uint16(buf[36:38])
	duration := binary.LittleEndian.Uint16(buf[38:40])

	title, err := decodeUnpaddedUtf8(buf[40:], "title")
	if err != nil {
		return nil, err
	}

	cmd := world.CreateTask{
		Title:      title,
		ServiceID:  serviceID,
		Priority:   priority,
		AssignedTo: assignedTo,
	}
	if date != grid.UnscheduledDate {
		cmd.Schedule = &grid.Schedule{Date: date, StartTime: startTime, Duration: duration}
	}
	return cmd, nil
}

func decodeScheduleOrMove(buf []byte, isMove bool) (world.Command, error) {
	if len(buf) < 23 {
		return nil, errTooShort()
	}
	taskID, err := uuid.FromBytes(buf[1:17])
	if err != nil {
		return nil, errInvalidField("task_id")
	}
	sched := grid.Schedule{
		Date:      binary.LittleEndian.Uint16(buf[17:19]),
		StartTime: binary.LittleEndian.Uint16(buf[19:21]),
		Duration:  binary.LittleEndian.Uint16(buf[21:23]),
	}
	if isMove {
		return world.MoveTask{TaskID: taskID, Schedule: sched}, nil
	}
	return world.ScheduleTask{TaskID: taskID, Schedule: sched}, nil
}

func decodeTaskIDOnly(buf []byte) (uuid.UUID, error) {
	if len(buf) < 17 {
		return uuid.Nil, errTooShort()
	}
	id, err := uuid.FromBytes(buf[1:17])
	if err != nil {
		return uuid.Nil, errInvalidField("task_id")
	}
	return id, nil
}

// decodeUnpaddedUtf8 decodes the variable-length title tail of CreateTask:
// the whole remainder of the frame is the title, sent without zero padding,
// but any trailing zero bytes are trimmed before UTF-8 validation, as for
// the fixed-stride records.
func decodeUnpaddedUtf8(src []byte, field string) (string, error) {
	return trimFixedString(src, field)
}

// --- Command encoders, used by clients and by tests to round-trip ---

// EncodeCreateTask builds the 0x10 CreateTask command frame.
func EncodeCreateTask(c world.CreateTask) []byte {
	titleLen := len(c.Title)
	if titleLen > titleFieldSize {
		titleLen = titleFieldSize
	}
	buf := make([]byte, 40+titleLen)
	buf[0] = byte(TagCreateTask)
	buf[1] = byte(c.Priority)
	svcBytes, _ := c.ServiceID.MarshalBinary()
	copy(buf[2:18], svcBytes)
	assignedBytes, _ := c.AssignedTo.MarshalBinary()
	copy(buf[18:34], assignedBytes)

	date, startTime, duration := grid.UnscheduledDate, uint16(0), uint16(0)
	if c.Schedule != nil {
		date, startTime, duration = c.Schedule.Date, c.Schedule.StartTime, c.Schedule.Duration
	}
	binary.LittleEndian.PutUint16(buf[34:36], date)
	binary.LittleEndian.PutUint16(buf[36:38], startTime)
	binary.LittleEndian.PutUint16(buf[38:40], duration)

	copy(buf[40:], c.Title[:titleLen])
	return buf
}

// EncodeScheduleTask builds the 0x11 ScheduleTask command frame.
func EncodeScheduleTask(c world.ScheduleTask) []byte {
	return encodeTaskAndSchedule(TagScheduleTask, c.TaskID, c.Schedule)
}

// EncodeMoveTask builds the 0x12 MoveTask command frame.
func EncodeMoveTask(c world.MoveTask) []byte {
	return encodeTaskAndSchedule(TagMoveTask, c.TaskID, c.Schedule)
}

func encodeTaskAndSchedule(tag CommandTag, taskID uuid.UUID, sched grid.Schedule) []byte {
	buf := make([]byte, 23)
	buf[0] = byte(tag)
	idBytes, _ := taskID.MarshalBinary()
	copy(buf[1:17], idBytes)
	binary.LittleEndian.PutUint16(buf[17:19], sched.Date)
	binary.LittleEndian.PutUint16(buf[19:21], sched.StartTime)
	binary.LittleEndian.PutUint16(buf[21:23], sched.Duration)
	return buf
}

// EncodeUnscheduleTask builds the 0x13 UnscheduleTask command frame.
func EncodeUnscheduleTask(c world.UnscheduleTask) []byte {
	return encodeTaskIDOnly(TagUnscheduleTask, c.TaskID)
}

// EncodeCompleteTask builds the 0x14 CompleteTask command frame.
func EncodeCompleteTask(c world.CompleteTask) []byte {
	return encodeTaskIDOnly(TagCompleteTask, c.TaskID)
}

// EncodeDeleteTask builds the 0x15 DeleteTask command frame.
func EncodeDeleteTask(c world.DeleteTask) []byte {
	return encodeTaskIDOnly(TagDeleteTask, c.TaskID)
}

func encodeTaskIDOnly(tag CommandTag, taskID uuid.UUID) []byte {
	buf := make([]byte, 17)
	buf[0] = byte(tag)
	idBytes, _ := taskID.MarshalBinary()
	copy(buf[1:17], idBytes)
	return buf
}
