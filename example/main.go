package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"github.com/theflywheel/mcdb"
	"github.com/theflywheel/mcdb/internal/cdbtest"
)

func main() {
	os.Remove("example.cdb")

	// mcdb is a read-only reader: build the fixture with the test-support
	// cdb writer, then open it the way a real deployment would open a file
	// produced by any cdb-compatible builder.
	records := make([]cdbtest.Record, 10)
	for i := range records {
		key := make([]byte, 8)
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(i))
		binary.BigEndian.PutUint64(value, uint64(i*100))
		records[i] = cdbtest.Record{Key: key, Value: value}
	}
	if err := cdbtest.Build("example.cdb", records); err != nil {
		log.Fatalf("Failed to build example.cdb: %v", err)
	}

	db, err := mcdb.Open("", "example.cdb")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("Database opened successfully")

	h := db.NewHandle()
	defer h.Close()

	buf := make([]byte, 8)
	for i := 0; i < 15; i += 2 {
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(i))

		if h.FindStart(key, 0) && h.FindNext(key, 0) {
			val := binary.BigEndian.Uint64(h.Value(buf))
			fmt.Printf("Key %d => Value %d\n", i, val)
		} else {
			fmt.Printf("Key %d not found\n", i)
		}
	}

	// Simulate an external rewrite of the file and show the hot-swap path:
	// the same Handle picks up the new generation on its next lookup.
	records[2].Value = encodeUint64(999)
	if err := cdbtest.Build("example.cdb", records); err != nil {
		log.Fatalf("Failed to rebuild example.cdb: %v", err)
	}

	if _, err := db.Refresh(); err != nil {
		log.Fatalf("Refresh failed: %v", err)
	}

	key := encodeUint64(2)
	if h.FindStart(key, 0) && h.FindNext(key, 0) {
		val := binary.BigEndian.Uint64(h.Value(buf))
		fmt.Printf("Updated key 2 => Value %d\n", val)
	}

	fmt.Println("Example completed successfully")
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
