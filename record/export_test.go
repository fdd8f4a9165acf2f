package record

// LiveRecorders returns how many recorders the exit handler would flush.
func LiveRecorders() int {
	live.Lock()
	defer live.Unlock()
	return len(live.recorders)
}
