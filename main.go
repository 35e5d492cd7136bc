// Command jobsift finds entry-level remote IT support postings.
package main

import "github.com/JakeFAU/jobsift/cmd"

func main() {
	cmd.Execute()
}
