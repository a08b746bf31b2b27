package arch_test

import (
	"testing"

	"github.com/jetsetilly/membrowse/internal/arch"
	"github.com/jetsetilly/membrowse/test"
)

func header(class, data byte, machine uint16, big bool) []byte {
	h := make([]byte, 20)
	copy(h, []byte("\x7fELF"))
	h[4] = class
	h[5] = data
	h[6] = 1
	if big {
		h[18] = byte(machine >> 8)
		h[19] = byte(machine)
	} else {
		h[18] = byte(machine)
		h[19] = byte(machine >> 8)
	}
	return h
}

func TestDetectARM(t *testing.T) {
	info := arch.Detect(header(1, 1, 0x28, false), "build/stm32/firmware.elf")
	test.ExpectSuccess(t, info != nil)
	test.Equate(t, info.Architecture, arch.ARM)
	test.Equate(t, info.Platform, arch.STM32)
	test.Equate(t, info.BitWidth, 32)
	test.Equate(t, info.IsEmbedded, true)
}

func TestDetectXtensaESP8266(t *testing.T) {
	info := arch.Detect(header(1, 1, 0x5E, false), "esp8266/build/firmware.elf")
	test.Equate(t, info.Architecture, arch.Xtensa)
	test.Equate(t, info.Platform, arch.ESP8266)
}

func TestDetectX86_64BigEndian(t *testing.T) {
	info := arch.Detect(header(2, 2, 0x3E, true), "/bin/ls")
	test.Equate(t, info.Architecture, arch.X86_64)
	test.Equate(t, info.Platform, arch.Unix)
	test.Equate(t, info.BitWidth, 64)
	test.Equate(t, info.Endianness, "big")
	test.Equate(t, info.IsEmbedded, false)
}

func TestDetectInvalidMagic(t *testing.T) {
	info := arch.Detect([]byte("not an elf file........"), "x")
	test.Equate(t, info == nil, true)
}

func TestDetectTooShort(t *testing.T) {
	info := arch.Detect([]byte{0x7f, 'E', 'L'}, "x")
	test.Equate(t, info == nil, true)
}
