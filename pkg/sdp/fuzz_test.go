// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Frame Codec Fuzz Tests
// ============================================================

// TestFuzz_ReadFrameRandomBytes feeds random byte streams to the frame
// reader. It must fail cleanly or parse, never panic.
func TestFuzz_ReadFrameRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		n := rng.Intn(64)
		data := make([]byte, n)
		rng.Read(data)

		id, err := FromIPv4([]byte{10, 0, 0, 1}, DefaultIPPort)
		if err != nil {
			t.Fatalf("FromIPv4: %v", err)
		}
		f, err := ReadFrame(bytes.NewReader(data), id)
		if err != nil {
			continue
		}
		// A parse that succeeded must expose a consistent payload view
		payload, err := f.PayloadBuffer()
		if err != nil {
			t.Errorf("Round %d: parsed frame without payload view: %v", i, err)
			continue
		}
		if _, err := payload.Bytes(); err != nil {
			t.Errorf("Round %d: payload view unreadable: %v", i, err)
		}
	}
}

// TestFuzz_FrameRoundTrip builds random valid frames and checks the reader
// reproduces them.
func TestFuzz_FrameRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		id, err := FromIPv4([]byte{byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256))}, uint16(rng.Intn(0x10000)))
		if err != nil {
			t.Fatalf("FromIPv4: %v", err)
		}
		hops := rng.Intn(3)
		for h := 0; h < hops; h++ {
			seg := make([]byte, IPv4AddrSize)
			rng.Read(seg)
			if err := id.Append(seg, AddressIPv4); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}

		writeData := make([]byte, rng.Intn(32))
		rng.Read(writeData)
		src := &SPIReadWriteRequest{Interface: rng.Uint32(), WriteData: writeData}

		f, err := NewPayloadFrame(id, src)
		if err != nil {
			t.Fatalf("Round %d: NewPayloadFrame: %v", i, err)
		}
		wire, err := f.Bytes()
		if err != nil {
			t.Fatalf("Round %d: Bytes: %v", i, err)
		}

		peer, _ := FromIPv4(id.Address(), id.Port())
		parsed, err := ReadFrame(bytes.NewReader(wire), peer)
		if err != nil {
			t.Fatalf("Round %d: ReadFrame: %v", i, err)
		}
		if parsed.ID().RerouteCount() != hops {
			t.Fatalf("Round %d: expected %d hops, got %d", i, hops, parsed.ID().RerouteCount())
		}
		if peer.RerouteCount() != 0 {
			t.Fatalf("Round %d: caller identifier picked up %d chain segments", i, peer.RerouteCount())
		}

		payload, err := parsed.PayloadBuffer()
		if err != nil {
			t.Fatalf("Round %d: PayloadBuffer: %v", i, err)
		}
		cmd, body, err := splitCommand(payload)
		if err != nil {
			t.Fatalf("Round %d: splitCommand: %v", i, err)
		}
		if cmd != CmdSPIReadWrite {
			t.Fatalf("Round %d: command mismatch: %s", i, CommandName(cmd))
		}
		got, err := ParseSPIReadWriteRequest(body)
		if err != nil {
			t.Fatalf("Round %d: parse: %v", i, err)
		}
		if got.Interface != src.Interface || !bytes.Equal(got.WriteData, src.WriteData) {
			t.Fatalf("Round %d: payload mismatch", i)
		}
	}
}

// ============================================================
// Identifier Fuzz Tests
// ============================================================

// TestFuzz_ParseDeviceIDRandomText throws random short strings at the
// identifier parser.
func TestFuzz_ParseDeviceIDRandomText(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	alphabet := "0123456789.:abcxyz"

	for i := 0; i < rounds; i++ {
		n := rng.Intn(24)
		raw := make([]byte, n)
		for j := range raw {
			raw[j] = alphabet[rng.Intn(len(alphabet))]
		}

		id, err := ParseDeviceID(string(raw), DefaultIPPort)
		if err != nil {
			continue
		}
		// Accepted identifiers must round-trip through String
		back, err := ParseDeviceID(id.String(), id.Port())
		if err != nil {
			t.Errorf("Round %d: %q parsed but String() %q did not: %v", i, raw, id.String(), err)
			continue
		}
		if !id.Equal(back) {
			t.Errorf("Round %d: %q did not survive a String round trip", i, raw)
		}
	}
}

// TestFuzz_ChainParseRandomBytes feeds random bytes to the chain parser.
func TestFuzz_ChainParseRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		n := rng.Intn(40)
		data := make([]byte, n)
		rng.Read(data)

		id, err := FromIPv4([]byte{10, 0, 0, 1}, DefaultIPPort)
		if err != nil {
			t.Fatalf("FromIPv4: %v", err)
		}
		if err := id.ParseChain(FromBytes(data, true, false)); err != nil {
			continue
		}
		// A parsed chain must re-serialize into the size it reports
		size := id.TotalAddressingSize()
		wire, err := NewBuffer(size)
		if err != nil {
			t.Fatalf("Round %d: NewBuffer: %v", i, err)
		}
		if err := id.SerializeChain(wire); err != nil {
			t.Errorf("Round %d: parsed chain failed to serialize: %v", i, err)
		}
	}
}
