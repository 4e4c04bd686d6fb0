package peripheral

import (
	"encoding/binary"
	"testing"

	"github.com/kstaniek/line-bus/internal/codec"
	"github.com/kstaniek/line-bus/internal/network"
)

func testNode(t *testing.T) *network.Node {
	t.Helper()
	req, err := network.NewRequest("WheelSpeed", 0x1000, 2, []*network.Signal{
		{Name: "Speed", Offset: 0, Width: 16, Initial: int64(0)},
	})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return &network.Node{Name: "WheelSensor", Address: 1, Publishes: []*network.Request{req}}
}

func TestPeripheral_DisconnectedDoesNotRespond(t *testing.T) {
	p := New(testNode(t), 0x11223344, Hooks{})
	if _, ok := p.OnRequest(0x1000); ok {
		t.Fatalf("disconnected peripheral responded")
	}
}

func TestPeripheral_PublishesCurrentSignalValues(t *testing.T) {
	p := New(testNode(t), 0x11223344, Hooks{})
	p.Connect()
	p.SetSignal(0x1000, "Speed", int64(300))

	data, ok := p.OnRequest(0x1000)
	if !ok {
		t.Fatalf("expected response")
	}
	if len(data) != 2 || data[0] != 0x2C || data[1] != 0x01 {
		t.Fatalf("data = % X, want little-endian 300", data)
	}
}

func TestPeripheral_OpStatusDiagnostic(t *testing.T) {
	node := testNode(t)
	p := New(node, 1, Hooks{})
	p.Connect()
	ok := codec.OpStatusOk
	p.SetOpStatus(ok)

	data, responded := p.OnRequest(codec.ReqOpStatusBase | node.Address)
	if !responded {
		t.Fatalf("expected diagnostic response")
	}
	if codec.OpStatus(data[0]) != codec.OpStatusOk {
		t.Fatalf("op status = %v, want Ok", codec.OpStatus(data[0]))
	}
}

func TestPeripheral_ConditionalChangeAddress(t *testing.T) {
	node := testNode(t)
	node.Address = codec.AddressUnassigned
	p := New(node, 0xAABBCCDD, Hooks{})
	p.Connect()

	payload := make([]byte, 5)
	binary.LittleEndian.PutUint32(payload[0:4], 0xAABBCCDD)
	payload[4] = 5
	p.OnRequestComplete(codec.ReqCondChangeAddress, payload)

	p.mu.Lock()
	addr := p.address
	p.mu.Unlock()
	if addr != 5 {
		t.Fatalf("address = %d, want 5", addr)
	}
}
