package image

import (
	"bufio"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// runImage executes the image under the given emulator command and scans its
// output for the markers printed by a test binary. Returns 0 if a PASS
// marker was seen, 1 on FAIL or panic. The emulator usually doesn't exit on
// its own, so it is killed once a marker was seen.
func runImage(command, path string) int {
	cmdargs, err := shellquote.Split(command)
	if err != nil {
		log.Fatalln("run:", err)
	}
	cmdargs = append(cmdargs, path)
	cmd := exec.Command(cmdargs[0], cmdargs[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr
	processGroupEnable(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Fatalln("open stdout:", err)
	}

	sigintr := make(chan os.Signal, 1)
	signal.Notify(sigintr, os.Interrupt)

	if err := cmd.Start(); err != nil {
		log.Fatalln("start command:", err)
	}

	stop := func() {
		// give panic() time to print the stacktrace
		time.Sleep(500 * time.Millisecond)
		stdout.Close()
		if err := processGroupKill(cmd); err != nil {
			log.Println(err)
		}
	}

	go func() {
		<-sigintr
		stdout.Close()
		if err := processGroupKill(cmd); err != nil {
			log.Println(err)
		}
	}()

	scanner := bufio.NewScanner(stdout)
	exiting := false
	code := 0
	for scanner.Scan() {
		line := scanner.Text()
		log.Println(line)
		if exiting {
			continue
		}
		switch {
		case strings.HasPrefix(line, "fatal error:"), strings.HasPrefix(line, "panic:"):
			fallthrough
		case line == "FAIL":
			code = 1
			fallthrough
		case line == "PASS":
			exiting = true
			go stop()
		}
	}
	cmd.Wait()
	return code
}
