/*
 * This file is part of Vox (https://github.com/voxlabs/vox-core).
 * Copyright (C) 2025 Vox Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package transcription

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV converts float32 PCM samples to a mono 16-bit WAV file body, the
// format the remote transcription API expects.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2 // 2 bytes per 16-bit sample
	fileSize := 36 + dataSize

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	writeU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	writeU16 := func(v uint16) {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], v)
		buf.Write(b[:])
	}

	buf.WriteString("RIFF")
	writeU32(uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeU32(16)                       // fmt chunk size for PCM
	writeU16(1)                        // PCM integer samples
	writeU16(1)                        // mono
	writeU32(uint32(sampleRate))       // sample rate
	writeU32(uint32(sampleRate * 2))   // byte rate
	writeU16(2)                        // block align
	writeU16(16)                       // bits per sample

	buf.WriteString("data")
	writeU32(uint32(dataSize))

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		writeU16(uint16(int16(s * 32767)))
	}

	return buf.Bytes()
}
