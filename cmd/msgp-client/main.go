// Command msgp-client is the interactive msgp user agent. It translates the
// REPL commands join/leave/groups/users/history/send 1:1 into protocol
// operations and prints pushed messages as they arrive.
//
// Usage: msgp-client username server [port]
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/groupwire/msgp/pkg/client"
	"github.com/groupwire/msgp/pkg/protocol"
)

func main() {
	args := os.Args[1:]
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(os.Stderr, "usage: msgp-client username server [port]")
		os.Exit(1)
	}

	username := args[0]
	host := args[1]
	port := protocol.DefaultPort
	if len(args) == 3 {
		p, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q\n", args[2])
			os.Exit(1)
		}
		port = p
	}

	sess, err := client.Dial(username, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	agent := &agent{sess: sess}
	agent.run()
}

type agent struct {
	sess *client.Session
}

func (a *agent) prompt() {
	fmt.Printf("\n@%s >>", a.sess.Username())
}

func (a *agent) run() {
	// Register up front so the user can receive messages without being a
	// member of any group.
	if _, err := a.sess.AddUser(); err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		return
	}

	// Print pushed messages as they arrive, then redraw the prompt.
	go func() {
		for msg := range a.sess.Messages() {
			fmt.Printf("[%s] %s", msg.From, msg.Body)
			a.prompt()
		}
	}()

	go func() {
		if err, ok := <-a.sess.Errors(); ok {
			fmt.Fprintf(os.Stderr, "\n%v\n", err)
			os.Exit(1)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		a.prompt()
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "join":
			if len(fields) < 2 {
				continue
			}
			a.join(fields[1])
		case "leave":
			if len(fields) < 2 {
				continue
			}
			a.leave(fields[1])
		case "groups":
			a.groups()
		case "users":
			if len(fields) < 2 {
				continue
			}
			a.users(fields[1])
		case "history":
			if len(fields) < 2 {
				continue
			}
			a.history(fields[1])
		case "send":
			a.send(fields)
		}
	}
}

func (a *agent) join(group string) {
	resp, err := a.sess.Join(group)
	if err != nil {
		fmt.Println(err)
		return
	}
	if resp.Status == protocol.StatusNoResult {
		fmt.Printf("%s is already a member of %s\n", a.sess.Username(), group)
		return
	}

	members, err := a.sess.Users(group)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Joined # %s with %d current member(s)\n", group, len(members))
}

func (a *agent) leave(group string) {
	resp, err := a.sess.Leave(group)
	if err != nil {
		fmt.Println(err)
		return
	}
	switch resp.Status {
	case protocol.StatusOK:
		fmt.Printf("%s is no longer part of %s\n", a.sess.Username(), group)
	case protocol.StatusNoResult:
		fmt.Printf("%s is not a member of the group\n", a.sess.Username())
	case protocol.StatusError:
		fmt.Printf("%s does not exist\n", group)
	}
}

func (a *agent) groups() {
	groups, err := a.sess.Groups()
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, group := range groups {
		members, err := a.sess.Users(group)
		if err != nil {
			continue
		}
		fmt.Printf("#%s has %d members\n", group, len(members))
	}
}

func (a *agent) users(group string) {
	members, err := a.sess.Users(group)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, member := range members {
		fmt.Printf("@%s\n", member)
	}
}

func (a *agent) history(group string) {
	history, err := a.sess.History(group)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, msg := range history {
		fmt.Printf("[%s] %s\n", msg.From, msg.Body)
	}
}

func (a *agent) send(tokens []string) {
	resp, err := a.sess.Send(tokens)
	if err != nil {
		fmt.Println(err)
		return
	}
	if resp.Status == protocol.StatusError {
		fmt.Println("One or more recipients do not exist.")
	}
}
