// Command route-impact scores how proposed transit routes change the
// betweenness centrality of a walk and transit network.
package main

func main() {
	Execute()
}
