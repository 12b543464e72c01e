package domain

// ShortAddress formats a wallet address for log lines and notifications as
// first-6 + last-4 characters, e.g. "0x1a2b...9f0e".
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
