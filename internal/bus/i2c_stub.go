//go:build !linux

package bus

import "github.com/meshwire/noded/internal/core"

// OpenI2CTransport is unavailable off Linux; non-Linux builds exist
// only to run the unit test suite against fakeTransport, paralleling
// the teacher's iouring_stub.go.
func OpenI2CTransport(path string) (*I2CTransport, error) {
	return nil, core.NewError("OPEN_I2C", 0, core.ENOSYS)
}

// I2CTransport is an unusable placeholder off Linux.
type I2CTransport struct{}

func (t *I2CTransport) Quiescent() bool { return false }
func (t *I2CTransport) DisableSlaveAck() {}
func (t *I2CTransport) EnableSlaveAck()  {}
func (t *I2CTransport) StartMaster(peer byte, mcmd byte, tx, rx []byte, done MasterDone) {
	done(OutcomeIllegalStart, 0)
}

func (t *I2CTransport) Close() error { return nil }
