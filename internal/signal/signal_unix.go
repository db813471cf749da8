//go:build unix

package signal

import "syscall"

// See https://pubs.opengroup.org/onlinepubs/9699919799/

var signalMap = map[syscall.Signal]string{
	syscall.SIGABRT:   "SIGABRT",   // A - Process abort signal
	syscall.SIGALRM:   "SIGALRM",   // T - Alarm clock
	syscall.SIGBUS:    "SIGBUS",    // A - Access to undefined portion of memory object
	syscall.SIGCHLD:   "SIGCHLD",   // I - Child process terminated, stopped, or continued
	syscall.SIGCONT:   "SIGCONT",   // C - Continue executing, if stopped
	syscall.SIGFPE:    "SIGFPE",    // A - Erroneous arithmetic operation
	syscall.SIGHUP:    "SIGHUP",    // T - Hangup
	syscall.SIGILL:    "SIGILL",    // A - Illegal instruction
	syscall.SIGINT:    "SIGINT",    // T - Terminal interrupt signal
	syscall.SIGIO:     "SIGIO",     // T - I/O possible (similar to SIGPOLL)
	syscall.SIGKILL:   "SIGKILL",   // T - Kill (cannot be caught or ignored)
	syscall.SIGPIPE:   "SIGPIPE",   // T - Write on pipe with no one to read it
	syscall.SIGPROF:   "SIGPROF",   // T - Profiling timer expired
	syscall.SIGQUIT:   "SIGQUIT",   // A - Terminal quit signal
	syscall.SIGSEGV:   "SIGSEGV",   // A - Invalid memory reference
	syscall.SIGSTOP:   "SIGSTOP",   // S - Stop executing (cannot be caught or ignored)
	syscall.SIGSYS:    "SIGSYS",    // A - Bad system call
	syscall.SIGTERM:   "SIGTERM",   // T - Termination signal
	syscall.SIGTRAP:   "SIGTRAP",   // A - Trace/breakpoint trap
	syscall.SIGTSTP:   "SIGTSTP",   // S - Terminal stop signal
	syscall.SIGTTIN:   "SIGTTIN",   // S - Background process attempting read
	syscall.SIGTTOU:   "SIGTTOU",   // S - Background process attempting write
	syscall.SIGURG:    "SIGURG",    // I - High bandwidth data available at socket
	syscall.SIGUSR1:   "SIGUSR1",   // T - User-defined signal 1
	syscall.SIGUSR2:   "SIGUSR2",   // T - User-defined signal 2
	syscall.SIGVTALRM: "SIGVTALRM", // T - Virtual timer expired
	syscall.SIGWINCH:  "SIGWINCH",  // I - Window size change (not in POSIX table)
	syscall.SIGXCPU:   "SIGXCPU",   // A - CPU time limit exceeded
	syscall.SIGXFSZ:   "SIGXFSZ",   // A - File size limit exceeded
}
