package repository

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of independently locked shards.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMaxGamesPerCell bounds the game references kept per cell. Zero keeps all.
func WithMaxGamesPerCell(n int) Option {
	return func(s *MemStore) {
		if n >= 0 {
			s.maxGamesPerCell = n
		}
	}
}
