// Command swordstub runs a stand-in SWORD v1 server, for trying out the
// sword command without a real repository.
//
// Collections are given as arguments of the form id=title. Each accepts zip
// packages.
//
//	swordstub -port 8080 -user user -pass secret personal="Personal Workspace"
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/facebookgo/httpdown"

	"github.com/ndlib/sword/bundle"
	"github.com/ndlib/sword/swordtest"
)

func main() {
	var (
		port     = flag.String("port", "8080", "port to listen on")
		username = flag.String("user", "user", "user name to require")
		password = flag.String("pass", "secret", "password to require")
	)
	flag.Parse()

	cols := parseCollections(flag.Args())
	if len(cols) == 0 {
		cols = []swordtest.Collection{{ID: "personal", Title: "Personal Workspace", Accepts: []string{bundle.ContentType}}}
	}
	for _, c := range cols {
		log.Printf("Collection %s: %s", c.ID, c.Title)
	}
	s := swordtest.New(*username, *password, cols...)

	log.Println("Listening on", *port)
	h := httpdown.HTTP{}
	server, err := h.ListenAndServe(&http.Server{
		Addr:    ":" + *port,
		Handler: s,
	})
	if err != nil {
		log.Fatalln(err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Stopping")
		server.Stop()
	}()

	if err := server.Wait(); err != nil {
		log.Println(err)
	}
	log.Printf("%d deposits received", len(s.Deposits()))
}

// parseCollections turns "id=title" arguments into collections. A missing
// title defaults to the id.
func parseCollections(args []string) []swordtest.Collection {
	var result []swordtest.Collection
	for _, arg := range args {
		v := strings.SplitN(arg, "=", 2)
		c := swordtest.Collection{ID: v[0], Title: v[0], Accepts: []string{bundle.ContentType}}
		if len(v) > 1 {
			c.Title = v[1]
		}
		result = append(result, c)
	}
	return result
}
