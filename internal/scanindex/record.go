package scanindex

// NoMS2PlusIndex is assigned to scans with MS level <= 1
const NoMS2PlusIndex = -1

// ScanRecord is one row of a scan index
type ScanRecord struct {
	NativeID     string
	MSLevel      int
	MS2PlusIndex int
}

// Counter hands out the MS2+ index. Only scans with an MS level above 1
// advance the counter.
type Counter struct {
	next int
}

// Assign returns the MS2+ index for a scan with the given level
func (c *Counter) Assign(msLevel int) int {
	if msLevel <= 1 {
		return NoMS2PlusIndex
	}
	i := c.next
	c.next++
	return i
}

// Count returns the number of MS2+ scans seen so far
func (c *Counter) Count() int {
	return c.next
}

// Record creates the ScanRecord for the next scan of a file
func (c *Counter) Record(nativeID string, msLevel int) ScanRecord {
	return ScanRecord{
		NativeID:     nativeID,
		MSLevel:      msLevel,
		MS2PlusIndex: c.Assign(msLevel),
	}
}
