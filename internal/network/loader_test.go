package network

import "testing"

const sampleNetwork = `{
  "baudrate": 19200,
  "master": "ECU",
  "encoders": {
    "speedScale": {"type": "formula", "scale": 0.1, "offset": 0},
    "doorState": {"type": "mapping", "mapping": {"0": "Closed", "1": "Open"}}
  },
  "requests": {
    "WheelSpeed": {
      "id": "0x1000",
      "size": 5,
      "layout": {
        "Speed": {"offset": 0, "width": 16, "encoder": "speedScale"}
      }
    },
    "DoorStatus": {
      "id": 4098,
      "size": 1,
      "layout": {
        "Door": {"offset": 0, "width": 1, "encoder": "doorState"}
      }
    }
  },
  "nodes": {
    "ECU": {"address": 0, "publishes": [], "subscribes": ["WheelSpeed"]},
    "WheelSensor": {"address": 1, "publishes": ["WheelSpeed"], "subscribes": []},
    "DoorSensor": {"address": 2, "publishes": ["DoorStatus"], "subscribes": []}
  },
  "schedules": {
    "main": {
      "type": "fixed",
      "slots": "variable",
      "delay": 0.01,
      "entries": [
        {"type": "request", "request": "WheelSpeed"},
        {"type": "opstatus", "node": "DoorSensor"}
      ]
    },
    "aging": {
      "type": "priority-aging",
      "slots": "variable",
      "phase": "zero",
      "delay": 0.01,
      "entries": [
        {"type": "request", "request": "WheelSpeed", "cycle": 2, "maxAge": 10},
        {"type": "request", "request": "DoorStatus", "cycle": 3, "maxAge": 10}
      ]
    }
  }
}`

func TestLoad_ParsesSampleNetwork(t *testing.T) {
	n, err := Load([]byte(sampleNetwork))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n.Baudrate != 19200 {
		t.Fatalf("Baudrate = %d, want 19200", n.Baudrate)
	}
	if n.Master.Name != "ECU" {
		t.Fatalf("Master = %q, want ECU", n.Master.Name)
	}
	req, err := n.RequestByName("WheelSpeed")
	if err != nil {
		t.Fatalf("RequestByName: %v", err)
	}
	if req.ID != 0x1000 || req.Size != 5 {
		t.Fatalf("WheelSpeed = %+v, want id=0x1000 size=5", req)
	}
	door, err := n.RequestByName("DoorStatus")
	if err != nil {
		t.Fatalf("RequestByName(DoorStatus): %v", err)
	}
	if door.ID != 4098 {
		t.Fatalf("DoorStatus.ID = %d, want 4098", door.ID)
	}
	if len(n.Schedules) != 2 {
		t.Fatalf("len(Schedules) = %d, want 2", len(n.Schedules))
	}
	fixed, ok := n.Schedules["main"].(*FixedOrderSchedule)
	if !ok {
		t.Fatalf("main schedule is not FixedOrderSchedule: %T", n.Schedules["main"])
	}
	if len(fixed.Entries) != 2 {
		t.Fatalf("main entries = %d, want 2", len(fixed.Entries))
	}
	aging, ok := n.Schedules["aging"].(*PriorityAgingSchedule)
	if !ok {
		t.Fatalf("aging schedule is not PriorityAgingSchedule: %T", n.Schedules["aging"])
	}
	if len(aging.Entries) != 2 || aging.Entries[0].Cycle != 2 || aging.Entries[0].MaxAge != 10 {
		t.Fatalf("aging entries = %+v", aging.Entries)
	}
}

func TestLoad_UnknownNodeReference(t *testing.T) {
	bad := `{"baudrate":1,"master":"Ghost","encoders":{},"requests":{},"nodes":{},"schedules":{}}`
	if _, err := Load([]byte(bad)); err == nil {
		t.Fatalf("expected error for unknown master node")
	}
}
