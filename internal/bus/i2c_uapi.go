package bus

import "unsafe"

// i2c_uapi.go hand-defines the slice of Linux I2C UAPI (linux/i2c.h,
// linux/i2c-dev.h) that golang.org/x/sys/unix does not itself export,
// in the same "struct + unsafe.Sizeof assertion" style as the teacher's
// internal/uapi package.

const (
	i2cSlave     = 0x0703 // I2C_SLAVE ioctl: set the target slave address
	i2cSlaveForce = 0x0706 // I2C_SLAVE_FORCE: same, ignoring driver claims
	i2cRdwr      = 0x0707 // I2C_RDWR ioctl: submit an i2c_rdwr_ioctl_data
	i2cFuncs     = 0x0705 // I2C_FUNCS: read supported functionality bits

	i2cMRd = 0x0001 // i2c_msg.flags: this leg is a read

	i2cFuncI2C = 0x00000001 // I2C_FUNC_I2C bit of the I2C_FUNCS result
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	_pad  uint16
	buf   unsafe.Pointer
}

// i2cRdwrIoctlData mirrors struct i2c_rdwr_ioctl_data.
type i2cRdwrIoctlData struct {
	msgs  unsafe.Pointer // *i2cMsg array
	nmsgs uint32
}

const (
	sizeofI2CMsg         = unsafe.Sizeof(i2cMsg{})
	sizeofI2CRdwrIoctlData = unsafe.Sizeof(i2cRdwrIoctlData{})
)

var (
	_ = sizeofI2CMsg
	_ = sizeofI2CRdwrIoctlData
)
